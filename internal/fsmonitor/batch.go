package fsmonitor

import "time"

// Batch is a slice of path strings observed in one listener callback.
// Batches form a singly-linked list from newest to oldest, anchored at the
// current TokenState's Head; Next points toward older batches.
type Batch struct {
	Paths      []string
	SeqNr      uint64
	PinnedTime time.Time
	Next       *Batch
}

// Pinned reports whether the batch has been (or is being) observed by a
// client and is therefore immutable.
func (b *Batch) Pinned() bool {
	return b != nil && !b.PinnedTime.IsZero()
}

// TokenState is the daemon's current session: the session id, the batch
// list's head/tail, and how many clients currently hold a reference into
// it.
type TokenState struct {
	SessionID      string
	Head           *Batch
	Tail           *Batch
	ClientRefCount int
}

// headSeq returns the current head batch's seq_nr, or 0 if there is none
// yet. seq_nr strictly decreases along the batch list from head to tail.
func (ts *TokenState) headSeq() uint64 {
	if ts.Head == nil {
		return 0
	}
	return ts.Head.SeqNr
}
