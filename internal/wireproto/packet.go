// Package wireproto implements the checkout helper's framed wire protocol:
// packet-line framing over a subprocess's stdin/stdout, a
// version/capability handshake, and the queue/write/get1/mget commands
// with their fixed-width binary records. This one link favors fixed-width
// integers, chosen for alignment and cross-platform determinism, over a
// JSON envelope — see DESIGN.md.
package wireproto

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// maxPacketLen bounds a single packet payload, guarding against a
// corrupted length prefix turning into an unbounded allocation.
const maxPacketLen = 64 << 20

// WritePacket writes one length-prefixed packet. The four-byte prefix is the
// big-endian length of data (not including the prefix itself); a zero
// length is reserved for the flush marker and must not be passed here.
func WritePacket(w io.Writer, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("wireproto: empty packet body (use WriteFlush for the flush marker)")
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(data)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// WriteFlush writes the flush marker: a four-byte zero length prefix with
// no payload, ending a logical group of packets (e.g. the end of a `queue`
// command's records).
func WriteFlush(w io.Writer) error {
	var hdr [4]byte
	_, err := w.Write(hdr[:])
	return err
}

// ReadPacket reads one packet, returning (nil, true, nil) on a flush marker.
func ReadPacket(r *bufio.Reader) (data []byte, flush bool, err error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, false, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 {
		return nil, true, nil
	}
	if n > maxPacketLen {
		return nil, false, fmt.Errorf("wireproto: packet length %d exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, false, err
	}
	return buf, false, nil
}
