package fsbackend

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyBackend watches a directory tree using fsnotify, grounded on the
// watcher.Add/watcher.Events select-loop idiom in cmd/bd/list.go. fsnotify
// does not watch subdirectories automatically, so this backend walks the
// tree at startup and adds a watch for every directory it creates events
// for, extending the watch set as new directories appear.
type FSNotifyBackend struct {
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewFSNotifyBackend returns a backend usable on any fsnotify-supported
// platform (Linux inotify, macOS FSEvents/kqueue).
func NewFSNotifyBackend() *FSNotifyBackend {
	return &FSNotifyBackend{stopCh: make(chan struct{})}
}

func (b *FSNotifyBackend) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

func (b *FSNotifyBackend) WaitForIdle() (bool, func()) { return false, nil }

func (b *FSNotifyBackend) Watch(ctx context.Context, root string, cb Callback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addRecursive(w, root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-b.stopCh:
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			events := []Event{translate(ev)}
			if ev.Has(fsnotify.Create) {
				if fi, statErr := os.Stat(ev.Name); statErr == nil && fi.IsDir() {
					events[0].Action |= Dir
					_ = addRecursive(w, ev.Name)
				}
			}
			cb(events, false)
		case werr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if werr == fsnotify.ErrEventOverflow {
				cb(nil, true)
				continue
			}
			// Other watcher errors are not fatal to the session; the
			// listener's caller decides whether to force a resync.
			cb(nil, false)
		}
	}
}

func translate(ev fsnotify.Event) Event {
	var a Action
	switch {
	case ev.Has(fsnotify.Create):
		a = Create
	case ev.Has(fsnotify.Remove):
		a = Remove
	case ev.Has(fsnotify.Rename):
		a = Rename
	case ev.Has(fsnotify.Write), ev.Has(fsnotify.Chmod):
		a = Modify
	}
	return Event{Path: ev.Name, Action: a}
}

func addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries rather than aborting the whole walk
		}
		if d.IsDir() {
			_ = w.Add(path)
		}
		return nil
	})
}
