// Package smudge implements the populator's write step: create the
// destination file, run the content-conversion pipeline, write the bytes,
// and stat the result.
package smudge

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/gitkit/parafs/internal/convert"
	"github.com/gitkit/parafs/internal/item"
)

const (
	execMode = 0o777
	fileMode = 0o666
)

// Write performs the write step for one loaded item, returning the error class
// (or Ok), errno, and final stat. It never mutates it.ErrClass/Errno/Stat
// directly — the caller (internal/helperserver's writer loop) does that via
// item.Finish once Write returns.
func Write(converter convert.Converter, it *item.Item) (item.ErrorClass, int, item.StatResult) {
	mode := fileMode
	if it.Mode&0o111 != 0 {
		mode = execMode
	}

	f, err := createExclusive(it.Path, mode)
	if err != nil {
		return item.Open, errnoOf(err), item.StatResult{}
	}
	defer f.Close()

	out := it.Content
	if transformed, ok, cerr := converter.Smudge(it.Attrs, it.Path, it.Content); cerr == nil && ok {
		out = transformed
	}

	if err := writeAll(f, out); err != nil {
		return item.Write, errnoOf(err), item.StatResult{}
	}

	stat, err := statResult(f, it.Path)
	if err != nil {
		return item.Lstat, errnoOf(err), item.StatResult{}
	}

	return item.Ok, 0, stat
}

// createExclusive opens path for exclusive creation, retrying once after
// creating any missing leading directories.
func createExclusive(path string, mode int) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREAT|os.O_EXCL, os.FileMode(mode))
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o777); mkErr != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREAT|os.O_EXCL, os.FileMode(mode))
}

// writeAll retries short writes until the full buffer has been written or
// an error occurs.
func writeAll(f *os.File, data []byte) error {
	r := bytes.NewReader(data)
	_, err := io.Copy(f, r)
	return err
}

// statResult fstats the open descriptor and falls back to an lstat by path
// only when that fstat fails.
func statResult(f *os.File, path string) (item.StatResult, error) {
	fi, err := f.Stat()
	if err != nil {
		fi, err = os.Lstat(path)
		if err != nil {
			return item.StatResult{}, err
		}
	}
	return item.StatResult{Size: fi.Size(), Mode: uint32(fi.Mode().Perm())}, nil
}

// errnoOf extracts the underlying syscall errno, or 0 if the error carries
// none (e.g. a non-OS error from a stubbed converter in tests).
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}
