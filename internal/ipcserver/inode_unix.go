//go:build unix

package ipcserver

import (
	"sync"

	"golang.org/x/sys/unix"
)

type inodeKey struct {
	dev uint64
	ino uint64
}

var (
	inodeCacheMu sync.Mutex
	inodeCache   = map[string]inodeKey{}
)

// socketInodeChanged lstats path and compares its inode/device against the
// pair cached on first call, reporting true once something else has
// force-rebound a socket at the same path.
func socketInodeChanged(path string) (bool, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return false, err
	}

	cur := inodeKey{dev: uint64(st.Dev), ino: st.Ino}
	inodeCacheMu.Lock()
	defer inodeCacheMu.Unlock()
	cached, ok := inodeCache[path]
	if !ok {
		inodeCache[path] = cur
		return false, nil
	}
	return cached != cur, nil
}
