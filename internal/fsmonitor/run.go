package fsmonitor

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gitkit/parafs/internal/fsbackend"
	"github.com/gitkit/parafs/internal/ipcserver"
)

// RunConfig wires together everything a running daemon process needs:
// the token/batch/cookie core, the listener watching root, and the IPC
// server accepting client queries.
type RunConfig struct {
	Config      Config
	Root        string
	SocketPath  string
	IPCThreads  int
	ClientDelay time.Duration
	Log         *slog.Logger
}

// Run builds a Daemon, Listener and ipcserver.Server from cfg and blocks
// until ctx is cancelled, the client protocol requests "quit", or the
// listener observes its ForceShutdown condition (the watched .git
// directory disappearing or being renamed away).
func Run(ctx context.Context, cfg RunConfig) error {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	d := New(cfg.Config)
	backend := fsbackend.New()

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listener := NewListener(d, backend, cfg.Root, func(style ShutdownStyle) {
		log.Warn("fsmonitor: watched .git disappeared, shutting down", "style", style)
	})

	handler := NewClientHandler(d, backend, cfg.Root)
	handler.ClientDelay = cfg.ClientDelay

	server := ipcserver.New(cfg.SocketPath, cfg.IPCThreads, handler.Handle, log.With("component", "ipcserver"))

	g.Go(func() error {
		defer cancel()
		return listener.Run(ctx)
	})
	g.Go(func() error {
		defer cancel()
		err := server.Start(ctx)
		listener.Stop()
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		listener.Stop()
		server.Stop()
		return nil
	})

	return g.Wait()
}
