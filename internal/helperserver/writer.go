package helperserver

import (
	"context"

	"github.com/gitkit/parafs/internal/item"
)

// writerLoop is one writer thread: while not shutting down, wait for a
// loaded-but-unclaimed item within the authorized range, claim it, and run
// the write step outside the lock.
func (s *Server) writerLoop(ctx context.Context) error {
	for {
		s.mu.Lock()
		for {
			if s.inShutdown {
				s.mu.Unlock()
				return nil
			}
			if s.preload.Count == 0 {
				s.writerCV.Wait()
				continue
			}
			k := s.preload.Start()
			if !s.watermark.Allows(k) {
				s.writerCV.Wait()
				continue
			}
			break
		}

		k := s.preload.Start()
		it := s.vec.At(k)
		s.preload.Claim()
		s.preloadCV.Signal()
		loadFailed := it.LoadFailed
		loadErrno := it.LoadErrno
		if !loadFailed {
			if err := it.Transition(item.Writing); err != nil {
				s.mu.Unlock()
				return err
			}
		}
		s.mu.Unlock()

		var class item.ErrorClass
		var errno int
		var stat item.StatResult
		if loadFailed {
			class, errno = item.Load, loadErrno
		} else {
			class, errno, stat = s.writeFn(it)
		}

		s.mu.Lock()
		if err := it.Finish(class, errno, stat); err != nil {
			s.mu.Unlock()
			return err
		}
		s.completedCount++
		s.doneCV.Broadcast()
		s.mu.Unlock()
	}
}
