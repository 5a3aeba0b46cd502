package smudge

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitkit/parafs/internal/convert"
	"github.com/gitkit/parafs/internal/item"
)

type upperConverter struct{}

func (upperConverter) Smudge(_ convert.Attrs, _ string, src []byte) ([]byte, bool, error) {
	out := make([]byte, len(src))
	for i, b := range src {
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		out[i] = b
	}
	return out, true, nil
}

func TestWriteCreatesLeadingDirectoriesAndContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.txt")

	it := &item.Item{Path: path, Mode: 0o100644, Content: []byte("hello")}
	class, errno, stat := Write(upperConverter{}, it)

	require.Equal(t, item.Ok, class)
	assert.Equal(t, 0, errno)
	assert.Equal(t, int64(5), stat.Size)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", string(got))
}

func TestWriteExecutableBitSetsMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")

	it := &item.Item{Path: path, Mode: 0o100755, Content: []byte("#!/bin/sh\n")}
	class, _, _ := Write(convert.IdentityConverter{}, it)
	require.Equal(t, item.Ok, class)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode().Perm()&0o111)
}

func TestWriteReportsOpenOnCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exists.txt")
	require.NoError(t, os.WriteFile(path, []byte("already here"), 0o644))

	it := &item.Item{Path: path, Mode: 0o100644, Content: []byte("new")}
	class, errno, _ := Write(convert.IdentityConverter{}, it)

	assert.Equal(t, item.Open, class)
	assert.Equal(t, int(syscall.EEXIST), errno)
}
