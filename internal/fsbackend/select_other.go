//go:build !windows

package fsbackend

// New returns the default backend for the current platform: fsnotify
// (inotify on Linux, FSEvents/kqueue on macOS).
func New() Backend {
	return NewFSNotifyBackend()
}
