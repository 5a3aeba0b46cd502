package helperserver

import (
	"context"

	"github.com/gitkit/parafs/internal/item"
	"github.com/gitkit/parafs/internal/objectstore"
)

// preloadLoop is the preload thread: while not shutting down, wait for room
// in the window, then load the next item's blob bytes and advance the
// window.
func (s *Server) preloadLoop(ctx context.Context) error {
	for {
		s.mu.Lock()
		for !s.inShutdown && !s.preload.CanFill(s.vec.Len()) {
			s.preloadCV.Wait()
		}
		if s.inShutdown {
			s.mu.Unlock()
			return nil
		}

		idx := s.preload.End
		it := s.vec.At(idx)
		if err := it.Transition(item.Loading); err != nil {
			s.mu.Unlock()
			return err
		}
		s.mu.Unlock()

		_, _, data, err := s.store.ReadObject(it.OID)

		s.mu.Lock()
		if err != nil {
			it.LoadFailed = true
			it.LoadErrno = loadErrno(err)
		} else {
			it.Content = data
		}
		if terr := it.Transition(item.Loaded); terr != nil {
			s.mu.Unlock()
			return terr
		}
		s.preload.Fill()
		s.writerCV.Signal()
		s.mu.Unlock()
	}
}

// loadErrno maps an object-store error to the numeric error_class/errno
// code surfaced on the item; ErrNotFound is the only classified case the
// populator's external-collaborator contract defines, so anything else
// reports a generic nonzero code.
func loadErrno(err error) int {
	if _, ok := err.(*objectstore.ErrNotFound); ok {
		return 2 // ENOENT
	}
	return 1
}
