// Package fsindex implements the persisted index-file fsmonitor extension:
// a version header followed by an EWAH-style bitmap of dirty positions,
// read and written alongside the index entries internal/indexentry
// describes.
package fsindex

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/gitkit/parafs/internal/bitmap"
)

// Version selects how the token header is interpreted: 1 is a
// nanosecond Unix timestamp, 2 is an opaque UTF-8 token string.
type Version uint32

const (
	VersionTimestamp Version = 1
	VersionToken     Version = 2
)

// Extension is the decoded on-disk representation.
type Extension struct {
	Version Version

	// TimestampNanos is set when Version == VersionTimestamp.
	TimestampNanos int64

	// Token is set when Version == VersionToken.
	Token string

	// Dirty holds the positions (index-entry offsets) flagged dirty by
	// the bitmap.
	Dirty *bitmap.Bitmap
}

// NewFromTimestamp builds a v1 extension stamped with now, the form
// written when no daemon-minted token is available.
func NewFromTimestamp(now time.Time, dirty *bitmap.Bitmap) Extension {
	return Extension{Version: VersionTimestamp, TimestampNanos: now.UnixNano(), Dirty: dirty}
}

// NewFromToken builds a v2 extension carrying an opaque daemon token.
func NewFromToken(token string, dirty *bitmap.Bitmap) Extension {
	return Extension{Version: VersionToken, Token: token, Dirty: dirty}
}

// Encode serializes the extension: a 4-byte big-endian version, then
// either an 8-byte big-endian nanosecond timestamp (v1) or a 4-byte
// big-endian length-prefixed UTF-8 string (v2), followed by the
// bitmap's own encoding.
func (e Extension) Encode() ([]byte, error) {
	var out []byte
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(e.Version))
	out = append(out, hdr[:]...)

	switch e.Version {
	case VersionTimestamp:
		var ts [8]byte
		binary.BigEndian.PutUint64(ts[:], uint64(e.TimestampNanos))
		out = append(out, ts[:]...)
	case VersionToken:
		tok := []byte(e.Token)
		var ln [4]byte
		binary.BigEndian.PutUint32(ln[:], uint32(len(tok)))
		out = append(out, ln[:]...)
		out = append(out, tok...)
	default:
		return nil, fmt.Errorf("fsindex: unsupported version %d", e.Version)
	}

	dirty := e.Dirty
	if dirty == nil {
		dirty = bitmap.New()
	}
	out = append(out, dirty.Encode()...)
	return out, nil
}

// Decode parses bytes produced by Encode. On a v1 header, Decode only
// exposes the raw timestamp; MintToken turns such an extension into a
// fresh daemon token with a new session id, since minting a session id is
// the daemon's concern, not the extension's.
func Decode(data []byte) (Extension, error) {
	if len(data) < 4 {
		return Extension{}, fmt.Errorf("fsindex: truncated header")
	}
	version := Version(binary.BigEndian.Uint32(data[:4]))
	off := 4

	var e Extension
	e.Version = version

	switch version {
	case VersionTimestamp:
		if len(data) < off+8 {
			return Extension{}, fmt.Errorf("fsindex: truncated v1 timestamp")
		}
		e.TimestampNanos = int64(binary.BigEndian.Uint64(data[off : off+8]))
		off += 8
	case VersionToken:
		if len(data) < off+4 {
			return Extension{}, fmt.Errorf("fsindex: truncated v2 token length")
		}
		n := int(binary.BigEndian.Uint32(data[off : off+4]))
		off += 4
		if len(data) < off+n {
			return Extension{}, fmt.Errorf("fsindex: truncated v2 token")
		}
		e.Token = string(data[off : off+n])
		off += n
	default:
		return Extension{}, fmt.Errorf("fsindex: unsupported version %d", version)
	}

	dirty, err := bitmap.Decode(data[off:])
	if err != nil {
		return Extension{}, fmt.Errorf("fsindex: decoding dirty bitmap: %w", err)
	}
	e.Dirty = dirty
	return e, nil
}
