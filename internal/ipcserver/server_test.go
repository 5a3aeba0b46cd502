package ipcserver

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoHandler(_ context.Context, command []byte, reply ReplyFunc) Result {
	if string(command) == "quit" {
		_ = reply(append([]byte("bye"), 0))
		return Quit
	}
	_ = reply(append(append([]byte("echo:"), command...), 0))
	return Continue
}

func startTestServer(t *testing.T, handler Callback) (path string, stop func()) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "sock")
	srv := New(path, 2, handler, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("unix", path, 50*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	return path, func() {
		cancel()
		<-done
	}
}

func TestServerEchoesCommand(t *testing.T) {
	path, stop := startTestServer(t, echoHandler)
	defer stop()

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(append([]byte("hello"), 0))
	require.NoError(t, err)

	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "echo:hello\x00", string(buf[:n]))
}

func TestHandlerQuitStopsServer(t *testing.T) {
	path, stop := startTestServer(t, echoHandler)
	defer stop()

	conn, err := net.Dial("unix", path)
	require.NoError(t, err)
	_, err = conn.Write(append([]byte("quit"), 0))
	require.NoError(t, err)
	buf := make([]byte, 64)
	_, _ = conn.Read(buf)
	conn.Close()

	require.Eventually(t, func() bool {
		_, err := net.DialTimeout("unix", path, 50*time.Millisecond)
		return err != nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestStaleSocketIsForceRebound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sock")

	// A leftover socket file with nothing listening behind it.
	l, err := net.Listen("unix", path)
	require.NoError(t, err)
	require.NoError(t, l.Close()) // closes listener but leaves the path on disk

	srv := New(path, 1, echoHandler, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("unix", path, 50*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
