// Package ipcserver implements a generic Unix-socket IPC server: a listener
// socket with a gentle bind/rebind dance, an accept goroutine backed by a
// bounded FIFO, and a pool of worker goroutines that hand each connection's
// first command to an application callback. It is generic over the
// Callback; in this module fsmonitor's client protocol is its one user (the
// checkout helper speaks its wire protocol over stdin/stdout instead).
package ipcserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gitkit/parafs/internal/fifo"
)

// FIFOScale sets the FIFO's capacity relative to the worker pool size.
const FIFOScale = 4

// firstByteTimeout bounds how long a worker waits for a client to send
// anything before giving up on it, filtering out silent port-scans.
const firstByteTimeout = 2 * time.Second

// inodeCheckInterval is how often the accept goroutine verifies that its
// own socket path still refers to the inode it bound.
const inodeCheckInterval = 2 * time.Second

// Result is returned by a Callback to tell the server whether to keep
// running or shut down.
type Result int

const (
	Continue Result = iota
	Quit
)

// ReplyFunc writes raw response bytes to the client connection; the
// handler is responsible for its own wire framing (e.g. NUL termination).
type ReplyFunc func(data []byte) error

// Callback handles one client connection's command bytes (the single
// NUL-terminated message fsmonitor clients send) and may reply any number
// of times via reply before returning.
type Callback func(ctx context.Context, command []byte, reply ReplyFunc) Result

// Server is a Unix-domain-socket IPC server.
type Server struct {
	SocketPath  string
	WorkerCount int
	Handler     Callback
	Log         *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	queue    *fifo.Queue
	shutdown bool
	quit     chan struct{}
	quitOnce sync.Once
	group    *errgroup.Group
}

// New returns a Server ready to Start. workerCount and handler are required.
func New(socketPath string, workerCount int, handler Callback, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		SocketPath:  socketPath,
		WorkerCount: workerCount,
		Handler:     handler,
		Log:         log,
		queue:       fifo.New(workerCount * FIFOScale),
		quit:        make(chan struct{}),
	}
}

// Start binds the socket (forcing a stale rebind: bind, and if busy try to
// connect and fail if alive, else force-unlink and rebind), then runs the
// accept loop and worker pool until ctx is cancelled, Stop is called, or the
// handler returns Quit.
func (s *Server) Start(ctx context.Context) error {
	listener, err := bindSocket(s.SocketPath)
	if err != nil {
		return fmt.Errorf("ipcserver: bind %s: %w", s.SocketPath, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	s.group = g

	g.Go(func() error {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-s.quit:
		}
		return nil
	})

	for i := 0; i < s.WorkerCount; i++ {
		g.Go(func() error {
			s.runWorker(ctx)
			return nil
		})
	}

	g.Go(func() error {
		return s.runAccept(ctx)
	})

	g.Go(func() error {
		s.runInodeWatchdog(ctx)
		return nil
	})

	err = g.Wait()
	s.cleanupSocket()
	return err
}

// Stop requests an orderly shutdown: closes the listener (unblocking
// Accept), drains and closes queued connections, and wakes worker threads.
func (s *Server) Stop() {
	s.quitOnce.Do(func() {
		close(s.quit)
	})
	s.mu.Lock()
	shutdown := s.shutdown
	s.shutdown = true
	listener := s.listener
	s.mu.Unlock()
	if shutdown {
		return
	}
	if listener != nil {
		_ = listener.Close()
	}
	for _, c := range s.queue.Close() {
		_ = c.Close()
	}
}

func (s *Server) runAccept(ctx context.Context) error {
	for {
		s.mu.Lock()
		listener := s.listener
		shutdown := s.shutdown
		s.mu.Unlock()
		if shutdown {
			return nil
		}

		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			shutdown := s.shutdown
			s.mu.Unlock()
			if shutdown {
				return nil
			}
			s.Log.Warn("ipcserver: accept failed", "error", err)
			continue
		}

		if !s.queue.Push(conn) {
			s.Log.Warn("ipcserver: FIFO full, dropping connection")
			_ = conn.Close()
		}
	}
}

func (s *Server) runWorker(ctx context.Context) {
	for {
		conn, ok := s.queue.Pop()
		if !ok {
			return
		}
		s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(firstByteTimeout))
	r := bufio.NewReader(conn)
	cmd, err := readUntilNUL(r)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		// Hangup before data, or a silent scan; ignored per connection.
		return
	}

	reply := func(data []byte) error {
		_, err := conn.Write(data)
		return err
	}

	result := s.Handler(ctx, cmd, reply)
	if result == Quit {
		s.Stop()
	}
}

func (s *Server) runInodeWatchdog(ctx context.Context) {
	ticker := time.NewTicker(inodeCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case <-ticker.C:
			if stolen, err := socketInodeChanged(s.SocketPath); err != nil {
				continue
			} else if stolen {
				s.Log.Warn("ipcserver: socket inode changed underneath us, shutting down")
				s.Stop()
				return
			}
		}
	}
}

func (s *Server) cleanupSocket() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = os.Remove(s.SocketPath)
	}
}

var ErrAlreadyListening = errors.New("ipcserver: another process is already listening on this socket")
