// Package helperserver implements the helper process's item queue and its
// preload/writer threads. A single mutex and three condition variables
// (preloadCV, writerCV, doneCV) guard one in-memory server context value,
// created at startup and passed by reference to each thread routine.
package helperserver

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gitkit/parafs/internal/convert"
	"github.com/gitkit/parafs/internal/item"
	"github.com/gitkit/parafs/internal/objectstore"
)

// Result is what wait_done returns for a completed item.
type Result struct {
	ErrClass item.ErrorClass
	Errno    int
	Stat     item.StatResult
}

// ErrNotFound is returned by WaitDone when helperNr is past the end of the
// vector.
var ErrNotFound = fmt.Errorf("helperserver: item not found")

// Server is one helper's item queue and thread pool. All exported methods
// lock mu internally; callers never touch the condition variables
// directly.
type Server struct {
	mu        sync.Mutex
	preloadCV *sync.Cond
	writerCV  *sync.Cond
	doneCV    *sync.Cond

	vec            item.Vec
	preload        item.PreloadRange
	watermark      item.Watermark
	completedCount int
	inShutdown     bool

	store      objectstore.Store
	classifier convert.Classifier
	converter  convert.Converter
	writeFn    WriteFunc

	preloadLimit int
	writers      int
}

// WriteFunc performs the smudge-and-write step for one loaded item,
// returning the error class/errno/stat to record on completion. It is
// supplied by internal/smudge in production and may be stubbed in tests.
type WriteFunc func(it *item.Item) (item.ErrorClass, int, item.StatResult)

// New creates a helper server context. preloadLimit bounds the in-memory
// preload window; writers is the writer thread pool size.
func New(store objectstore.Store, classifier convert.Classifier, converter convert.Converter, writeFn WriteFunc, preloadLimit, writers int) *Server {
	s := &Server{
		store:        store,
		classifier:   classifier,
		converter:    converter,
		writeFn:      writeFn,
		watermark:    item.NewWatermark(),
		preload:      item.PreloadRange{Limit: preloadLimit},
		preloadLimit: preloadLimit,
		writers:      writers,
	}
	s.preloadCV = sync.NewCond(&s.mu)
	s.writerCV = sync.NewCond(&s.mu)
	s.doneCV = sync.NewCond(&s.mu)
	return s
}

// Enqueue appends it to the item vector. it.HelperNr must equal the
// current vector length; this is the only mutation the protocol/server
// goroutine performs on the vector directly.
func (s *Server) Enqueue(it *item.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.vec.Append(it); err != nil {
		return err
	}
	if err := it.Transition(item.Queued); err != nil {
		return err
	}
	if s.preload.Count < s.preload.Limit {
		s.preloadCV.Signal()
	}
	return nil
}

// Authorize widens the write watermark. It broadcasts writerCV when the
// watermark actually changed, since any number of waiting writers may now
// be unblocked.
func (s *Server) Authorize(end int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watermark.Authorize(end) {
		s.writerCV.Broadcast()
	}
}

// WaitDone blocks until item helperNr reaches Done, then returns its
// result.
func (s *Server) WaitDone(helperNr int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if helperNr >= s.vec.Len() {
		return Result{}, ErrNotFound
	}
	it := s.vec.At(helperNr)
	for !it.IsDone() {
		s.doneCV.Wait()
	}
	return Result{ErrClass: it.ErrClass, Errno: it.Errno, Stat: it.Stat}, nil
}

// Shutdown requests that the preload and writer threads stop at their next
// wait point. It does not itself join threads; the caller is expected to
// wait on the errgroup returned by Run.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inShutdown = true
	s.preloadCV.Signal()
	s.writerCV.Broadcast()
}

// CompletedCount returns how many items have reached Done.
func (s *Server) CompletedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completedCount
}

// Len returns the number of items enqueued so far.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vec.Len()
}

// Run starts the preload thread and the writer thread pool, returning once
// ctx is cancelled or Shutdown is called and every thread has returned its
// wait point and exited.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.preloadLoop(ctx) })
	for i := 0; i < s.writers; i++ {
		g.Go(func() error { return s.writerLoop(ctx) })
	}
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()
	return g.Wait()
}
