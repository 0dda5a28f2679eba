// Package backup keeps a single-generation snapshot of a file next to it.
package backup

import (
	"errors"
	"io/fs"
	"os"

	mpfs "github.com/sokinpui/markpatch/internal/fs"
	"github.com/sokinpui/markpatch/model"
)

// Suffix is appended to the original file name.
const Suffix = ".bak"

// PathFor returns the snapshot path of a file.
func PathFor(path string) string {
	return path + Suffix
}

// Exists reports whether a snapshot of path is present.
func Exists(path string) bool {
	_, err := os.Stat(PathFor(path))
	return err == nil
}

// Snapshot copies the current content of path to its sibling snapshot,
// overwriting any previous one, and returns the snapshot path.
func Snapshot(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &model.IOError{Op: "snapshot", Path: path, Err: err}
	}
	bak := PathFor(path)
	if err := mpfs.WriteFileAtomic(bak, data); err != nil {
		return "", &model.IOError{Op: "snapshot", Path: bak, Err: err}
	}
	return bak, nil
}

// Restore overwrites path with its snapshot. It returns model.ErrNoBackup
// when no snapshot exists.
func Restore(path string) error {
	bak := PathFor(path)
	data, err := os.ReadFile(bak)
	if errors.Is(err, fs.ErrNotExist) {
		return model.ErrNoBackup
	}
	if err != nil {
		return &model.IOError{Op: "restore", Path: bak, Err: err}
	}
	if err := mpfs.WriteFileAtomic(path, data); err != nil {
		return &model.IOError{Op: "restore", Path: path, Err: err}
	}
	return nil
}
