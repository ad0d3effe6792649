package storage

import (
	"sync"
	"time"

	"github.com/brightledger/matchengine/internal/diskstore"
	"github.com/brightledger/matchengine/internal/records"
)

// DiskMetadataStore persists the single Metadata record at offset 0,
// always overwritten (or appended once, the first time).
type DiskMetadataStore struct {
	mu   sync.Mutex
	file *diskstore.Store
}

// OpenMetadataStore opens (or creates) the metadata file.
func OpenMetadataStore(path string) (*DiskMetadataStore, error) {
	f, err := diskstore.Open(path)
	if err != nil {
		return nil, err
	}
	return &DiskMetadataStore{file: f}, nil
}

// Load returns the persisted metadata, or a fresh zero-value record with
// NextOrderID/NextTradeID at 1 if the file has never been written.
func (s *DiskMetadataStore) Load() (*records.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file.Size() < int64(records.MetadataSize) {
		return &records.Metadata{NextOrderID: 1, NextTradeID: 1, LastSaveTime: time.Now().UTC()}, nil
	}
	b, err := s.file.ReadAt(0, records.MetadataSize)
	if err != nil {
		return nil, err
	}
	return records.DecodeMetadata(b)
}

// Save overwrites the metadata record, appending the first time.
func (s *DiskMetadataStore) Save(m *records.Metadata) error {
	b, err := records.EncodeMetadata(m)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file.Size() < int64(records.MetadataSize) {
		_, err := s.file.Append(b)
		return err
	}
	return s.file.OverwriteAt(0, b)
}

// Close closes the underlying file.
func (s *DiskMetadataStore) Close() error {
	return s.file.Close()
}
