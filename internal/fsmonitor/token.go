// Package fsmonitor implements the filesystem-monitor daemon's core: the
// token/batch/cookie synchronization model, the listener that classifies
// and publishes platform events, and the client query handler served over
// internal/ipcserver.
package fsmonitor

import (
	"fmt"
	"strconv"
	"strings"
)

// tokenPrefix marks an opaque V2 token, as opposed to a V1 (bare
// nanosecond-timestamp) or garbage string a client might still send.
const tokenPrefix = ":internal:"

// Token is the opaque session_id:seq_nr pair returned to clients.
type Token struct {
	SessionID string
	Seq       uint64
}

// String renders the wire form ":internal:<session_id>:<seq_nr>".
func (t Token) String() string {
	return fmt.Sprintf("%s%s:%d", tokenPrefix, t.SessionID, t.Seq)
}

// ParseToken parses a client-supplied token string. ok is false for any
// string that isn't a well-formed V2 token: anything not starting with
// :internal: is diagnosed as V1 or garbage and answered trivially by the
// caller.
func ParseToken(s string) (tok Token, ok bool) {
	rest, found := strings.CutPrefix(s, tokenPrefix)
	if !found {
		return Token{}, false
	}
	idx := strings.LastIndex(rest, ":")
	if idx < 0 {
		return Token{}, false
	}
	sid, seqStr := rest[:idx], rest[idx+1:]
	if sid == "" {
		return Token{}, false
	}
	seq, err := strconv.ParseUint(seqStr, 10, 64)
	if err != nil {
		return Token{}, false
	}
	return Token{SessionID: sid, Seq: seq}, true
}
