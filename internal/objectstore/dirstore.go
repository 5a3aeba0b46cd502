package objectstore

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// DirStore is a minimal filesystem-backed Store: each object's bytes live
// in a file named by the hex encoding of its raw id under root. It exists
// so cmd/git-checkout-helper has something to read real bytes from without
// pulling in loose-object or pack decoding, both explicit non-goals of the
// populator itself.
type DirStore struct {
	root string
}

// NewDirStore returns a Store reading objects from files under root.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

// ReadObject implements Store. Every object is reported as KindBlob; the
// populator never needs to distinguish tree/commit objects.
func (d *DirStore) ReadObject(id string) (Kind, int64, []byte, error) {
	path := filepath.Join(d.root, hex.EncodeToString([]byte(id)))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil, &ErrNotFound{ID: id}
		}
		return 0, 0, nil, fmt.Errorf("objectstore: reading %s: %w", path, err)
	}
	return KindBlob, int64(len(data)), data, nil
}
