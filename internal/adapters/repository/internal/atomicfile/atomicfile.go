// Package atomicfile replaces a file's contents all-or-nothing.
package atomicfile

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Write fills a temp file in path's directory and renames it over path. The
// file observed by any reader is either the old state or the new state; a
// crash mid-write leaves the old file untouched. With fsync set the new
// contents reach stable storage before the rename makes them visible.
func Write(path string, mode fs.FileMode, fsync bool, fill func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// On any failure below, the temp file is removed and path is intact.
	fail := func(step string, err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%s: %w", step, err)
	}

	if err := fill(tmp); err != nil {
		return fail("write temp file", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fail("chmod temp file", err)
	}
	if fsync {
		if err := tmp.Sync(); err != nil {
			return fail("sync temp file", err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
