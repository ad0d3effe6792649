package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymbolStoreAddExistsPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "symbols.dat")

	s, err := OpenSymbolStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Add("AAPL"))
	require.NoError(t, s.Add("AAPL")) // duplicate is a no-op
	require.NoError(t, s.Add("MSFT"))
	require.True(t, s.Exists("AAPL"))
	require.False(t, s.Exists("GOOG"))
	require.NoError(t, s.Close())

	s2, err := OpenSymbolStore(path)
	require.NoError(t, err)
	defer s2.Close()

	all, err := s2.LoadAll()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"AAPL", "MSFT"}, all)
}
