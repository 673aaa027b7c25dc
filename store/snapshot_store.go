package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/merklepass/merklepass/core/types"
)

// SnapshotStore persists the published StateSnapshot as a JSON file.
type SnapshotStore struct {
	path string
}

// NewSnapshotStore creates a store backed by the given file path.
func NewSnapshotStore(path string) *SnapshotStore {
	return &SnapshotStore{path: path}
}

// Path returns the backing file path.
func (s *SnapshotStore) Path() string { return s.path }

// Exists reports whether a snapshot file is present.
func (s *SnapshotStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and decodes the snapshot file.
func (s *SnapshotStore) Load() (types.StateSnapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return types.StateSnapshot{}, fmt.Errorf("store: read snapshot: %w", err)
	}
	var snap types.StateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return types.StateSnapshot{}, fmt.Errorf("store: decode snapshot %s: %w", s.path, err)
	}
	return snap, nil
}

// Save encodes and atomically writes the snapshot file. The snapshot is
// the public artifact, so it is world-readable.
func (s *SnapshotStore) Save(snap types.StateSnapshot) error {
	data, err := json.MarshalIndent(&snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	return writeFileAtomic(s.path, append(data, '\n'), 0o644)
}
