package fsindex

import "github.com/gitkit/parafs/internal/fsmonitor"

// MintToken implements the load-time rule: a v1 (timestamp) extension
// (or an unparsable v2 token) mints a fresh daemon token with a new session
// id from newSessionID and seq 0, ignoring the stored epoch, while a v2
// extension's opaque token is preserved verbatim.
func (e Extension) MintToken(newSessionID func() string) fsmonitor.Token {
	if e.Version == VersionToken {
		if tok, ok := fsmonitor.ParseToken(e.Token); ok {
			return tok
		}
	}
	return fsmonitor.Token{SessionID: newSessionID(), Seq: 0}
}
