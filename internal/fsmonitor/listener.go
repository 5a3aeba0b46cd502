package fsmonitor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gitkit/parafs/internal/fsbackend"
)

// ShutdownStyle is the listener's exit reason.
type ShutdownStyle int

const (
	NoShutdown ShutdownStyle = iota
	// ForceShutdown is raised when the watched root's .git is removed or
	// renamed away — an unrecoverable condition for the daemon.
	ForceShutdown
)

// Listener converts a fsbackend.Backend's raw events into batches and
// publishes them into the daemon under its lock.
type Listener struct {
	daemon  *Daemon
	backend fsbackend.Backend
	root    string

	// onShutdown is invoked once, from the Watch goroutine, when a
	// ForceShutdown condition is observed.
	onShutdown func(ShutdownStyle)
}

// NewListener wires a daemon to a backend watching root.
func NewListener(d *Daemon, backend fsbackend.Backend, root string, onShutdown func(ShutdownStyle)) *Listener {
	return &Listener{daemon: d, backend: backend, root: root, onShutdown: onShutdown}
}

// Run blocks until ctx is cancelled, the backend stops, or a ForceShutdown
// condition fires.
func (l *Listener) Run(ctx context.Context) error {
	return l.backend.Watch(ctx, l.root, l.handle)
}

// Stop requests the underlying backend return from Watch.
func (l *Listener) Stop() { l.backend.Stop() }

func (l *Listener) handle(events []fsbackend.Event, dropped bool) {
	if dropped {
		l.daemon.ForceResync()
		return
	}

	var worktreePaths []string
	var cookieNames []string
	for _, ev := range events {
		rel, err := filepath.Rel(l.root, ev.Path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)

		switch Classify(rel, l.daemon.cfg.DotGitName, l.daemon.cfg.CookiePrefix) {
		case Worktree:
			p := rel
			if ev.Action&fsbackend.Dir != 0 {
				p = strings.TrimSuffix(p, "/") + "/"
			}
			worktreePaths = append(worktreePaths, p)
		case InsideDotGitWithCookiePrefix:
			cookieNames = append(cookieNames, CookieName(rel, l.daemon.cfg.DotGitName))
		case InsideDotGit:
			// not a cookie, not worktree content: ignored
		case DotGit:
			if ev.Action&(fsbackend.Remove|fsbackend.Rename) != 0 {
				if l.onShutdown != nil {
					l.onShutdown(ForceShutdown)
				}
				l.backend.Stop()
				return
			}
		}
	}

	if len(worktreePaths) > 0 || len(cookieNames) > 0 {
		l.daemon.Publish(worktreePaths, cookieNames)
	}
}
