package store

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/merklepass/merklepass/core/types"
)

// RecordStore persists the issuer's private ticket records as a CBOR
// file. The file contains raw ticket secrets: it stays local to the
// issuing authority and is written owner-readable only.
type RecordStore struct {
	path string
}

// NewRecordStore creates a store backed by the given file path.
func NewRecordStore(path string) *RecordStore {
	return &RecordStore{path: path}
}

// Path returns the backing file path.
func (s *RecordStore) Path() string { return s.path }

// Load reads and decodes the record list. A missing file is an empty
// store, not an error, so a fresh data directory needs no priming.
func (s *RecordStore) Load() ([]types.TicketRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read records: %w", err)
	}
	var records []types.TicketRecord
	if err := cbor.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("store: decode records %s: %w", s.path, err)
	}
	return records, nil
}

// Save encodes and atomically writes the record list.
func (s *RecordStore) Save(records []types.TicketRecord) error {
	data, err := cbor.Marshal(records)
	if err != nil {
		return fmt.Errorf("store: encode records: %w", err)
	}
	return writeFileAtomic(s.path, data, 0o600)
}
