package fsmonitor

// Publish folds a newly observed batch of worktree paths and a list of
// observed cookie names into the current token under the daemon lock.
func (d *Daemon) Publish(paths []string, cookieNames []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current == nil {
		d.current = &TokenState{SessionID: d.cfg.NewSessionID()}
	}

	if len(paths) > 0 {
		switch {
		case d.current.Head == nil:
			b := &Batch{Paths: paths, SeqNr: 0}
			d.current.Head = b
			d.current.Tail = b
		case d.current.Head.Pinned() || len(d.current.Head.Paths)+len(paths) > d.cfg.CombineLimit:
			b := &Batch{Paths: paths, SeqNr: d.current.Head.SeqNr + 1, Next: d.current.Head}
			d.current.Head = b
		default:
			d.current.Head.Paths = append(d.current.Head.Paths, paths...)
		}
	}

	for _, name := range cookieNames {
		if c, ok := d.cookies[name]; ok && c.Result == CookieInit {
			c.Result = CookieSeen
		}
	}
	d.cookieCV.Broadcast()
}

// truncateLocked walks forward (older) from head, looking for the first
// batch whose PinnedTime+DELAY <= head.PinnedTime, and frees everything
// older than it. Must be called with d.mu held.
func (d *Daemon) truncateLocked(head *Batch) {
	if head == nil || head.PinnedTime.IsZero() {
		return
	}

	for b := head; b != nil; b = b.Next {
		if b.PinnedTime.IsZero() {
			continue
		}
		if !b.PinnedTime.Add(d.cfg.TruncateDelay).After(head.PinnedTime) {
			b.Next = nil
			d.current.Tail = b
			return
		}
	}
}
