//go:build windows

package fsbackend

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// notifyBufferSize is generous enough to avoid FILE_NOTIFY_INFORMATION overflow
// under normal event bursts; overflow still reported via ERROR_NOTIFY_ENUM_DIR.
const notifyBufferSize = 64 * 1024

const fileNotifyMask = windows.FILE_NOTIFY_CHANGE_FILE_NAME |
	windows.FILE_NOTIFY_CHANGE_DIR_NAME |
	windows.FILE_NOTIFY_CHANGE_ATTRIBUTES |
	windows.FILE_NOTIFY_CHANGE_SIZE |
	windows.FILE_NOTIFY_CHANGE_LAST_WRITE |
	windows.FILE_NOTIFY_CHANGE_CREATION

// WindowsBackend watches a directory tree with ReadDirectoryChangesW's
// native recursive-watch flag, avoiding the manual per-subdirectory watch
// bookkeeping fsnotify needs on Linux/macOS.
type WindowsBackend struct {
	stopOnce sync.Once
	stopCh   chan struct{}
	idleCh   chan struct{}
}

func NewWindowsBackend() *WindowsBackend {
	return &WindowsBackend{stopCh: make(chan struct{}), idleCh: make(chan struct{}, 1)}
}

func (b *WindowsBackend) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// WaitForIdle signals the idle channel is drained once the current pending
// ReadDirectoryChangesW buffer has been fully processed, giving Windows a
// native synchronization primitive rather than relying on the cookie-file
// mechanism.
func (b *WindowsBackend) WaitForIdle() (bool, func()) {
	return true, func() { <-b.idleCh }
}

func (b *WindowsBackend) Watch(ctx context.Context, root string, cb Callback) error {
	path, err := windows.UTF16PtrFromString(root)
	if err != nil {
		return err
	}

	handle, err := windows.CreateFile(
		path,
		windows.FILE_LIST_DIRECTORY,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_FLAG_BACKUP_SEMANTICS|windows.FILE_FLAG_OVERLAPPED,
		0,
	)
	if err != nil {
		return fmt.Errorf("fsbackend: opening %q: %w", root, err)
	}
	defer windows.CloseHandle(handle)

	buf := make([]byte, notifyBufferSize)
	overlapped := &windows.Overlapped{}
	event, err := windows.CreateEvent(nil, 1, 0, nil)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(event)
	overlapped.HEvent = event

	for {
		var bytesReturned uint32
		err := windows.ReadDirectoryChanges(handle, &buf[0], uint32(len(buf)), true, fileNotifyMask, &bytesReturned, overlapped, 0)
		if err != nil {
			return fmt.Errorf("fsbackend: ReadDirectoryChangesW: %w", err)
		}

		waitErr := waitForEventOrStop(event, b.stopCh, ctx.Done())
		if waitErr == errStopped {
			return nil
		}
		if waitErr != nil {
			return waitErr
		}

		var n uint32
		if err := windows.GetOverlappedResult(handle, overlapped, &n, false); err != nil {
			if err == windows.ERROR_NOTIFY_ENUM_DIR {
				cb(nil, true)
				continue
			}
			return fmt.Errorf("fsbackend: GetOverlappedResult: %w", err)
		}

		events := parseNotifications(buf[:n], root)
		cb(events, false)
		select {
		case b.idleCh <- struct{}{}:
		default:
		}
	}
}

func parseNotifications(buf []byte, root string) []Event {
	var events []Event
	offset := 0
	for {
		if offset+12 > len(buf) {
			break
		}
		info := (*windows.FileNotifyInformation)(unsafe.Pointer(&buf[offset]))
		nameLen := int(info.FileNameLength)
		nameStart := offset + 12
		if nameStart+nameLen > len(buf) {
			break
		}
		u16 := unsafe.Slice((*uint16)(unsafe.Pointer(&buf[nameStart])), nameLen/2)
		name := windows.UTF16ToString(u16)

		events = append(events, Event{
			Path:   filepath.Join(root, name),
			Action: windowsActionToAction(info.Action),
		})

		if info.NextEntryOffset == 0 {
			break
		}
		offset += int(info.NextEntryOffset)
	}
	return events
}

func windowsActionToAction(action uint32) Action {
	switch action {
	case windows.FILE_ACTION_ADDED:
		return Create
	case windows.FILE_ACTION_REMOVED:
		return Remove
	case windows.FILE_ACTION_MODIFIED:
		return Modify
	case windows.FILE_ACTION_RENAMED_OLD_NAME, windows.FILE_ACTION_RENAMED_NEW_NAME:
		return Rename
	default:
		return Modify
	}
}

var errStopped = fmt.Errorf("fsbackend: stopped")

// waitForEventOrStop blocks until the overlapped event fires, the backend
// is stopped, or ctx is done, without pulling in a full IOCP-based
// reactor — acceptable because one WindowsBackend owns exactly one
// outstanding ReadDirectoryChangesW call at a time.
func waitForEventOrStop(event windows.Handle, stopCh <-chan struct{}, done <-chan struct{}) error {
	type result struct{ err error }
	ch := make(chan result, 1)
	go func() {
		status, err := windows.WaitForSingleObject(event, windows.INFINITE)
		if err != nil {
			ch <- result{err: err}
			return
		}
		ch <- result{err: eventErr(status)}
	}()
	select {
	case r := <-ch:
		return r.err
	case <-stopCh:
		return errStopped
	case <-done:
		return errStopped
	}
}

func eventErr(waitStatus uint32) error {
	if waitStatus == uint32(windows.WAIT_OBJECT_0) {
		return nil
	}
	return fmt.Errorf("fsbackend: WaitForSingleObject status %d", waitStatus)
}

// New returns the Windows backend.
func New() Backend {
	return NewWindowsBackend()
}
