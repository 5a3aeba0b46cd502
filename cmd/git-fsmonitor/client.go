package main

import (
	"bufio"
	"fmt"
	"net"
	"time"
)

// sendQuery dials socketPath, writes command as the single NUL-terminated
// message the daemon's wire protocol expects, and returns every
// NUL-terminated line of the reply in order: the new token first, then
// zero or more changed paths, then an optional "/" trivial-response
// sentinel.
func sendQuery(socketPath, command string, timeout time.Duration) ([]string, error) {
	conn, err := net.DialTimeout("unix", socketPath, timeout)
	if err != nil {
		return nil, fmt.Errorf("git-fsmonitor: connecting to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := conn.Write(append([]byte(command), 0)); err != nil {
		return nil, fmt.Errorf("git-fsmonitor: sending command: %w", err)
	}

	var lines []string
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString(0)
		if len(line) > 0 {
			lines = append(lines, line[:len(line)-1])
		}
		if err != nil {
			break
		}
	}
	return lines, nil
}

// isListening reports whether some process already holds socketPath;
// start checks this before spawning the background daemon.
func isListening(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, 200*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
