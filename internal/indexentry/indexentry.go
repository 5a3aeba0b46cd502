// Package indexentry models the index as a read-only sequence of entries,
// treated as an external collaborator. The real index data structure
// (staging, merges, extensions beyond fsmonitor) is out of scope.
package indexentry

import "github.com/gitkit/parafs/internal/convert"

// Entry is one index entry relevant to worktree population.
type Entry struct {
	OID         string
	Mode        uint32
	Path        string // worktree-relative, base-dir prefix already applied
	Attrs       convert.Attrs
	NeedsUpdate bool
}

// RegularFile reports whether the entry's mode denotes a plain file (as
// opposed to a symlink, gitlink, or directory mode bit pattern).
func (e Entry) RegularFile() bool {
	const modeTypeMask = 0o170000
	const modeRegular = 0o100000
	return e.Mode&modeTypeMask == modeRegular
}

// Executable reports whether the entry's regular-file mode carries the
// executable bit, deciding 0777 vs 0666 at create time.
func (e Entry) Executable() bool {
	return e.Mode&0o111 != 0
}

// Index is the ordered view of entries the foreground coordinator walks.
type Index interface {
	Entries() []Entry
}

// Slice is a trivial Index backed by an in-memory slice, used by tests and
// by callers that have already loaded entries from elsewhere.
type Slice []Entry

func (s Slice) Entries() []Entry { return []Entry(s) }
