package fifo

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeConn(t *testing.T) net.Conn {
	t.Helper()
	c1, c2 := net.Pipe()
	t.Cleanup(func() {
		_ = c1.Close()
		_ = c2.Close()
	})
	return c1
}

func TestPushPopOrder(t *testing.T) {
	q := New(2)
	a, b := pipeConn(t), pipeConn(t)
	require.True(t, q.Push(a))
	require.True(t, q.Push(b))
	assert.Equal(t, 2, q.Len())

	got, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, a, got)

	got, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, b, got)
}

func TestPushDropsWhenFull(t *testing.T) {
	q := New(1)
	require.True(t, q.Push(pipeConn(t)))
	assert.False(t, q.Push(pipeConn(t)))
}

func TestPopBlocksUntilPush(t *testing.T) {
	q := New(1)
	done := make(chan net.Conn, 1)
	go func() {
		conn, ok := q.Pop()
		if ok {
			done <- conn
		} else {
			done <- nil
		}
	}()

	select {
	case <-done:
		t.Fatal("Pop returned before any Push")
	case <-time.After(50 * time.Millisecond):
	}

	c := pipeConn(t)
	require.True(t, q.Push(c))
	select {
	case got := <-done:
		assert.Equal(t, c, got)
	case <-time.After(time.Second):
		t.Fatal("Pop never woke up")
	}
}

func TestCloseWakesBlockedPop(t *testing.T) {
	q := New(1)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()
	time.Sleep(20 * time.Millisecond)
	remaining := q.Close()
	assert.Empty(t, remaining)
	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Close did not wake blocked Pop")
	}
	assert.False(t, q.Push(pipeConn(t)))
}
