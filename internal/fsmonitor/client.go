package fsmonitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gitkit/parafs/internal/fsbackend"
	"github.com/gitkit/parafs/internal/ipcserver"
)

const trivialSentinel = "/"

// ClientHandler implements internal/ipcserver's Callback for the fsmonitor
// wire protocol.
type ClientHandler struct {
	Daemon      *Daemon
	Backend     fsbackend.Backend
	Root        string
	ClientDelay time.Duration // GIT_TEST_FSMONITOR_CLIENT_DELAY
	PID         int
	Now         func() time.Time
	seqCounter  func() uint64

	// onCookieFile is a test seam invoked synchronously right after the
	// cookie file is created (before it's removed), letting tests observe
	// the cookie deterministically instead of racing a filesystem watch
	// against the immediate removal.
	onCookieFile func(name string)
}

// NewClientHandler builds a handler. pid and seq are used to name cookie
// files uniquely per query: <cookie_prefix><pid>-<seq>.
func NewClientHandler(d *Daemon, backend fsbackend.Backend, root string) *ClientHandler {
	var n uint64
	return &ClientHandler{
		Daemon: d, Backend: backend, Root: root, PID: os.Getpid(), Now: time.Now,
		seqCounter: func() uint64 { n++; return n },
	}
}

// Handle implements ipcserver.Callback.
func (h *ClientHandler) Handle(ctx context.Context, command []byte, reply ipcserver.ReplyFunc) ipcserver.Result {
	if h.ClientDelay > 0 {
		time.Sleep(h.ClientDelay)
	}
	cmd := string(command)

	switch cmd {
	case "quit":
		return ipcserver.Quit
	case "flush":
		h.Daemon.ForceResync()
		h.respondTrivial(reply)
		return ipcserver.Continue
	}

	tok, ok := ParseToken(cmd)
	if !ok {
		h.respondTrivial(reply)
		return ipcserver.Continue
	}

	h.query(tok, reply)
	return ipcserver.Continue
}

func (h *ClientHandler) respondTrivial(reply ipcserver.ReplyFunc) {
	tok := h.Daemon.CurrentToken()
	_ = reply(nulTerminated(tok.String()))
	_ = reply(nulTerminated(trivialSentinel))
}

func (h *ClientHandler) respondEmpty(reply ipcserver.ReplyFunc, tok Token) {
	_ = reply(nulTerminated(tok.String()))
}

// query implements the V2 query path.
func (h *ClientHandler) query(tok Token, reply ipcserver.ReplyFunc) {
	d := h.Daemon
	d.mu.Lock()
	if d.current == nil {
		d.mu.Unlock()
		h.respondTrivial(reply)
		return
	}
	if tok.SessionID != d.current.SessionID {
		d.mu.Unlock()
		h.respondTrivial(reply)
		return
	}
	if d.current.Head == nil {
		if tok.Seq == 0 {
			resp := Token{SessionID: d.current.SessionID, Seq: 0}
			d.mu.Unlock()
			h.respondEmpty(reply, resp)
			return
		}
		d.mu.Unlock()
		h.respondTrivial(reply)
		return
	}
	if d.current.Tail != nil && tok.Seq < d.current.Tail.SeqNr {
		d.mu.Unlock()
		h.respondTrivial(reply)
		return
	}
	sid := d.current.SessionID
	d.mu.Unlock()

	if !h.synchronizeWithListener(sid) {
		h.respondTrivial(reply)
		return
	}

	d.mu.Lock()
	if d.current == nil || d.current.SessionID != sid {
		d.mu.Unlock()
		h.respondTrivial(reply)
		return
	}
	head := d.current.Head
	if head.PinnedTime.IsZero() {
		head.PinnedTime = h.Now()
	}
	d.current.ClientRefCount++
	d.mu.Unlock()

	h.emit(tok, sid, head, reply)
	h.cleanup(sid, head)
}

// synchronizeWithListener blocks until every filesystem event queued
// before the query arrived has reached the listener, using whichever
// mechanism the backend supports: cookie-flush, or the platform
// wait-for-idle primitive.
func (h *ClientHandler) synchronizeWithListener(sid string) (ok bool) {
	if supported, wait := h.Backend.WaitForIdle(); supported {
		wait()
		return h.Daemon.CurrentSessionID() == sid
	}
	return h.cookieFlush(sid)
}

func (h *ClientHandler) cookieFlush(sid string) bool {
	d := h.Daemon
	name := fmt.Sprintf("%s%d-%d", d.cfg.CookiePrefix, h.PID, h.seqCounter())
	path := filepath.Join(h.Root, d.cfg.DotGitName, name)

	d.mu.Lock()
	c := &Cookie{Name: name, Result: CookieInit}
	d.cookies[name] = c
	d.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		d.mu.Lock()
		delete(d.cookies, name)
		d.mu.Unlock()
		return false
	}
	f.Close()
	if h.onCookieFile != nil {
		h.onCookieFile(name)
	}
	os.Remove(path)

	d.mu.Lock()
	for c.Result == CookieInit {
		d.cookieCV.Wait()
	}
	result := c.Result
	delete(d.cookies, name)
	d.mu.Unlock()

	return result == CookieSeen
}

// emit walks batches from head while batch.SeqNr >= tok.Seq, deduping
// paths against a hash set, and writes the response.
func (h *ClientHandler) emit(tok Token, sid string, head *Batch, reply ipcserver.ReplyFunc) {
	respTok := Token{SessionID: sid, Seq: head.SeqNr + 1}
	_ = reply(nulTerminated(respTok.String()))

	seen := map[string]struct{}{}
	for b := head; b != nil && b.SeqNr >= tok.Seq; b = b.Next {
		for _, p := range b.Paths {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			_ = reply(nulTerminated(p))
		}
	}
}

// cleanup decrements the reader ref-count and frees or truncates the
// token's batches as appropriate.
func (h *ClientHandler) cleanup(sid string, head *Batch) {
	d := h.Daemon
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil || d.current.SessionID != sid {
		return // a resync already dropped this session's state entirely
	}
	d.current.ClientRefCount--
	if d.current.ClientRefCount > 0 {
		return
	}
	d.truncateLocked(head)
}

func nulTerminated(s string) []byte {
	return append([]byte(s), 0)
}
