package fsmonitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	n := 0
	return Config{
		DotGitName:    ".git",
		CookiePrefix:  "fsmonitor-cookie/",
		CombineLimit:  4,
		TruncateDelay: 5 * time.Minute,
		NewSessionID:  func() string { n++; return "sid" },
	}
}

func TestPublishFirstBatchInstalledAtHeadAndTail(t *testing.T) {
	d := New(testConfig())
	d.Publish([]string{"a"}, nil)

	require.NotNil(t, d.current.Head)
	assert.Same(t, d.current.Head, d.current.Tail)
	assert.Equal(t, uint64(0), d.current.Head.SeqNr)
	assert.Equal(t, []string{"a"}, d.current.Head.Paths)
}

func TestPublishCombinesIntoHeadWhenUnpinned(t *testing.T) {
	d := New(testConfig())
	d.Publish([]string{"a"}, nil)
	d.Publish([]string{"b"}, nil)

	assert.Same(t, d.current.Head, d.current.Tail) // still one batch
	assert.Equal(t, []string{"a", "b"}, d.current.Head.Paths)
	assert.Equal(t, uint64(0), d.current.Head.SeqNr)
}

func TestPublishPrependsWhenHeadPinned(t *testing.T) {
	d := New(testConfig())
	d.Publish([]string{"a"}, nil)
	d.current.Head.PinnedTime = time.Now()

	d.Publish([]string{"b"}, nil)

	require.NotSame(t, d.current.Head, d.current.Tail)
	assert.Equal(t, uint64(1), d.current.Head.SeqNr)
	assert.Equal(t, []string{"b"}, d.current.Head.Paths)
	assert.Equal(t, d.current.Tail, d.current.Head.Next)
}

func TestPublishPrependsWhenCombineLimitExceeded(t *testing.T) {
	cfg := testConfig()
	cfg.CombineLimit = 1
	d := New(cfg)
	d.Publish([]string{"a"}, nil)
	d.Publish([]string{"b", "c"}, nil)

	require.NotSame(t, d.current.Head, d.current.Tail)
	assert.Equal(t, uint64(1), d.current.Head.SeqNr)
}

func TestPublishMarksMatchingCookieSeen(t *testing.T) {
	d := New(testConfig())
	c := &Cookie{Name: "fsmonitor-cookie/1-1", Result: CookieInit}
	d.cookies[c.Name] = c

	d.Publish(nil, []string{"fsmonitor-cookie/1-1"})
	assert.Equal(t, CookieSeen, c.Result)
}

func TestForceResyncAbortsCookiesAndMintsNewSession(t *testing.T) {
	d := New(testConfig())
	d.Publish([]string{"a"}, nil)
	c := &Cookie{Name: "x", Result: CookieInit}
	d.cookies["x"] = c

	old := d.ForceResync()
	require.NotNil(t, old)
	assert.Equal(t, CookieAbort, c.Result)
	assert.Empty(t, d.cookies)
	assert.NotSame(t, old, d.current)
}

func TestTruncateFreesOldBatchesPastDelay(t *testing.T) {
	cfg := testConfig()
	cfg.TruncateDelay = time.Minute
	d := New(cfg)

	older := &Batch{Paths: []string{"older"}, SeqNr: 0, PinnedTime: time.Now().Add(-20 * time.Minute)}
	old := &Batch{Paths: []string{"old"}, SeqNr: 1, PinnedTime: time.Now().Add(-10 * time.Minute), Next: older}
	head := &Batch{Paths: []string{"new"}, SeqNr: 2, PinnedTime: time.Now(), Next: old}
	d.current = &TokenState{SessionID: "sid", Head: head, Tail: older}

	d.mu.Lock()
	d.truncateLocked(head)
	d.mu.Unlock()

	// "old" is the first batch past the delay: it becomes the tail and
	// only the batches older than it are freed.
	assert.Same(t, old, head.Next)
	assert.Nil(t, old.Next)
	assert.Same(t, old, d.current.Tail)
}
