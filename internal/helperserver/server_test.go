package helperserver

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitkit/parafs/internal/convert"
	"github.com/gitkit/parafs/internal/item"
	"github.com/gitkit/parafs/internal/objectstore"
)

func testItem(n int, oid string) *item.Item {
	return &item.Item{PCNr: n, HelperNr: n, OID: oid, Mode: 0100644}
}

func recordingWriter(t *testing.T) (WriteFunc, func() []int) {
	var mu sync.Mutex
	var order []int
	fn := func(it *item.Item) (item.ErrorClass, int, item.StatResult) {
		mu.Lock()
		order = append(order, it.HelperNr)
		mu.Unlock()
		return item.Ok, 0, item.StatResult{Size: int64(len(it.Content))}
	}
	return fn, func() []int {
		mu.Lock()
		defer mu.Unlock()
		return append([]int(nil), order...)
	}
}

func TestPreloadWindowSaturation(t *testing.T) {
	store := objectstore.NewMemory()
	for i := 0; i < 10; i++ {
		store.Put(fmt.Sprintf("oid%d", i), objectstore.KindBlob, []byte("x"))
	}

	writeFn, order := recordingWriter(t)
	s := New(store, convert.PassthroughClassifier{}, convert.IdentityConverter{}, writeFn, 2, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Enqueue(testItem(i, fmt.Sprintf("oid%d", i))))
	}
	s.Authorize(item.Auto)

	for i := 0; i < 10; i++ {
		res, err := s.WaitDone(i)
		require.NoError(t, err)
		assert.Equal(t, item.Ok, res.ErrClass)
	}
	assert.Equal(t, 10, s.CompletedCount())
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestLoadFailureSkipsWrite(t *testing.T) {
	store := objectstore.NewMemory() // oid "missing" is never Put

	var wrote bool
	writeFn := func(it *item.Item) (item.ErrorClass, int, item.StatResult) {
		wrote = true
		return item.Ok, 0, item.StatResult{}
	}
	s := New(store, convert.PassthroughClassifier{}, convert.IdentityConverter{}, writeFn, 4, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, s.Enqueue(testItem(0, "missing")))
	s.Authorize(item.Auto)

	res, err := s.WaitDone(0)
	require.NoError(t, err)
	assert.Equal(t, item.Load, res.ErrClass)
	assert.False(t, wrote)

	cancel()
	<-done
}

func TestWaitDoneReportsNotFound(t *testing.T) {
	store := objectstore.NewMemory()
	s := New(store, convert.PassthroughClassifier{}, convert.IdentityConverter{}, nil, 1, 1)
	_, err := s.WaitDone(5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncModeWatermarkGatesWriter(t *testing.T) {
	store := objectstore.NewMemory()
	store.Put("a", objectstore.KindBlob, []byte("a"))
	store.Put("b", objectstore.KindBlob, []byte("b"))

	writeFn, order := recordingWriter(t)
	s := New(store, convert.PassthroughClassifier{}, convert.IdentityConverter{}, writeFn, 4, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.NoError(t, s.Enqueue(testItem(0, "a")))
	require.NoError(t, s.Enqueue(testItem(1, "b")))

	s.Authorize(1)
	res, err := s.WaitDone(0)
	require.NoError(t, err)
	assert.Equal(t, item.Ok, res.ErrClass)
	assert.Equal(t, []int{0}, order())

	s.Authorize(2)
	_, err = s.WaitDone(1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, order())

	cancel()
	<-done
}
