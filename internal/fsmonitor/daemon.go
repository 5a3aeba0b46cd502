package fsmonitor

import (
	"sync"
	"time"
)

// SessionIDFunc mints a new session id. Production wiring uses wall-clock
// plus pid; tests substitute a deterministic sequence, mirroring the
// GIT_TEST_FSMONITOR_TOKEN environment override.
type SessionIDFunc func() string

// Config tunes the daemon's batch/cookie behavior.
type Config struct {
	DotGitName    string
	CookiePrefix  string
	CombineLimit  int
	TruncateDelay time.Duration
	NewSessionID  SessionIDFunc
}

// Daemon holds the fsmonitor core's single mutex and its cookie condition
// variable; the platform wait-for-idle primitive lives in internal/fsbackend
// and is not a condition variable on this struct.
type Daemon struct {
	mu       sync.Mutex
	cookieCV *sync.Cond

	cfg     Config
	current *TokenState
	cookies map[string]*Cookie
}

// New creates a daemon with no current token; call ForceResync (or rely on
// the listener's Publish path) to mint the first one.
func New(cfg Config) *Daemon {
	d := &Daemon{cfg: cfg, cookies: map[string]*Cookie{}}
	d.cookieCV = sync.NewCond(&d.mu)
	return d
}

// ForceResync mints a new session, aborts every pending cookie, and
// installs the new token as current. It returns the old TokenState so the
// caller can free it iff ClientRefCount == 0.
func (d *Daemon) ForceResync() (old *TokenState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.forceResyncLocked()
}

func (d *Daemon) forceResyncLocked() *TokenState {
	old := d.current
	for _, c := range d.cookies {
		c.Result = CookieAbort
	}
	d.cookieCV.Broadcast()
	d.cookies = map[string]*Cookie{}
	d.current = &TokenState{SessionID: d.cfg.NewSessionID()}
	return old
}

// CurrentSessionID returns the active session id, or "" if none yet.
func (d *Daemon) CurrentSessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ""
	}
	return d.current.SessionID
}

// CurrentToken returns the token a client should be handed a "fresh start"
// from: the current session id and one past the head batch's seq_nr, or
// seq 0 while the session has no batch yet (minting a fresh session id if
// no token has ever been minted).
func (d *Daemon) CurrentToken() Token {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		d.current = &TokenState{SessionID: d.cfg.NewSessionID()}
	}
	if d.current.Head == nil {
		return Token{SessionID: d.current.SessionID, Seq: 0}
	}
	return Token{SessionID: d.current.SessionID, Seq: d.current.headSeq() + 1}
}
