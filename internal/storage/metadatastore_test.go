package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brightledger/matchengine/internal/records"
)

func TestMetadataStoreDefaultsWhenEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenMetadataStore(filepath.Join(dir, "metadata.dat"))
	require.NoError(t, err)
	defer s.Close()

	m, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(1), m.NextOrderID)
	require.Equal(t, uint64(1), m.NextTradeID)
}

func TestMetadataStoreSaveOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.dat")
	s, err := OpenMetadataStore(path)
	require.NoError(t, err)

	m := &records.Metadata{NextOrderID: 5, NextTradeID: 3, TotalUsers: 2, LastSaveTime: time.Now().UTC()}
	require.NoError(t, s.Save(m))
	require.NoError(t, s.Save(m)) // second save overwrites, doesn't grow the file
	require.NoError(t, s.Close())

	s2, err := OpenMetadataStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Load()
	require.NoError(t, err)
	require.Equal(t, uint64(5), got.NextOrderID)
	require.Equal(t, uint64(3), got.NextTradeID)
}
