package wireproto

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/mod/semver"
)

// SupportedVersion is the protocol version this package speaks. The
// handshake format (a "version=N" packet followed by an empty-capability
// or capability-list packet, flush-terminated) mirrors git's own
// pkt-line capability advertisement; ReadHandshake compares the peer's
// major version against this one with golang.org/x/mod/semver.
const SupportedVersion = "v1.0.0"

// Capability names the helper may advertise after version negotiation.
type Capability string

const (
	CapQueue Capability = "queue"
	CapWrite Capability = "write"
	CapGet1  Capability = "get1"
	CapMget  Capability = "mget"
)

// Handshake is the negotiated outcome: the protocol version both sides
// settled on and the set of capabilities the helper advertised.
type Handshake struct {
	Version      string
	Capabilities map[Capability]bool
}

// WriteHandshake sends this process's version line and capability list,
// terminated by a flush packet, and is used identically by the foreground
// coordinator (advertising what it asks of a helper) and the helper
// (advertising what it can do).
func WriteHandshake(w io.Writer, version string, caps []Capability) error {
	if err := WritePacket(w, []byte("version="+version)); err != nil {
		return err
	}
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = string(c)
	}
	if err := WritePacket(w, []byte(strings.Join(names, " "))); err != nil {
		return err
	}
	return WriteFlush(w)
}

// ReadHandshake reads a peer's version and capability packets, validating
// that the advertised version is compatible with SupportedVersion (same
// major component, per semver.Major).
func ReadHandshake(r *bufio.Reader) (*Handshake, error) {
	verPkt, flush, err := ReadPacket(r)
	if err != nil {
		return nil, fmt.Errorf("wireproto: reading version packet: %w", err)
	}
	if flush {
		return nil, fmt.Errorf("wireproto: expected version packet, got flush")
	}
	ver := strings.TrimPrefix(string(verPkt), "version=")
	if !strings.HasPrefix(ver, "v") {
		ver = "v" + ver
	}
	if semver.Major(ver) != semver.Major(SupportedVersion) {
		return nil, fmt.Errorf("wireproto: incompatible helper version %q (want major %s)", ver, semver.Major(SupportedVersion))
	}

	capPkt, flush, err := ReadPacket(r)
	if err != nil {
		return nil, fmt.Errorf("wireproto: reading capability packet: %w", err)
	}
	if flush {
		return nil, fmt.Errorf("wireproto: expected capability packet, got flush")
	}
	caps := map[Capability]bool{}
	for _, name := range strings.Fields(string(capPkt)) {
		caps[Capability(name)] = true
	}

	if _, flush, err := ReadPacket(r); err != nil {
		return nil, fmt.Errorf("wireproto: reading handshake terminator: %w", err)
	} else if !flush {
		return nil, fmt.Errorf("wireproto: handshake not flush-terminated")
	}

	return &Handshake{Version: ver, Capabilities: caps}, nil
}

// Supports reports whether the handshake advertised cap.
func (h *Handshake) Supports(cap Capability) bool {
	return h != nil && h.Capabilities[cap]
}
