// Package atomicfile replaces whole files on disk.
//
// Write stages the content in a temporary file next to the target and renames
// it into place, so a concurrent reader observes either the old or the new
// content. WriteDirect truncates and rewrites the target in place; a reader
// racing it can observe a partial file.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Write stages data in a temp file in the directory of path, then renames it
// over path and syncs the directory.
func Write(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	staged := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(staged)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("stage %s: %w", path, err)
	}
	if err = os.Rename(staged, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	syncDir(dir)
	return nil
}

// syncDir flushes the rename. Some platforms cannot open or sync a directory;
// the rename itself has already happened, so failures are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	d.Sync()
	d.Close()
}

// WriteDirect truncates path and writes data to it.
func WriteDirect(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
