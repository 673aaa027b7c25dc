// Package store persists ticket-service state. The published snapshot is
// a JSON file (nullifiers and hashes as ordered canonical hex strings);
// the private ticket-record list is a CBOR file that must never be
// published. Both are written atomically (temp file + rename) so a
// concurrent reader observes either the old or the new state, never a
// partial write.
//
// The intended discipline around the core is load-before / save-after:
// restore the service from the files, apply one mutating call, save both
// files, in that order.
package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// writeFileAtomic writes data to path via a temp file in the same
// directory followed by a rename.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("store: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", tmpName, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("store: chmod %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store: rename %s: %w", tmpName, err)
	}
	return nil
}
