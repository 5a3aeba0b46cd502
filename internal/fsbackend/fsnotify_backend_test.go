package fsbackend

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSNotifyBackendReportsCreate(t *testing.T) {
	dir := t.TempDir()
	b := NewFSNotifyBackend()

	var mu sync.Mutex
	var seen []Event
	done := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		_ = b.Watch(ctx, dir, func(events []Event, dropped bool) {
			mu.Lock()
			seen = append(seen, events...)
			mu.Unlock()
			select {
			case done <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher a moment to install its directory watch.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("hi"), 0o644))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("no event observed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.NotEmpty(t, seen)
}
