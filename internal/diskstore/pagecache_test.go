package diskstore

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheReadMatchesStoreAfterFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	payload := bytes.Repeat([]byte{0xAB}, PageSize*3)
	off, err := s.Append(payload)
	require.NoError(t, err)
	require.Zero(t, off)

	c := NewCache(s, 2)
	require.NoError(t, c.Write(100, []byte("patched")))

	got, err := c.Read(100, len("patched"))
	require.NoError(t, err)
	require.Equal(t, "patched", string(got))

	// Not yet written through to the store.
	raw, err := s.ReadAt(100, len("patched"))
	require.NoError(t, err)
	require.NotEqual(t, "patched", string(raw))

	require.NoError(t, c.Flush())
	raw, err = s.ReadAt(100, len("patched"))
	require.NoError(t, err)
	require.Equal(t, "patched", string(raw))
}

func TestCacheEvictionWritesBackDirtyPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Append(make([]byte, PageSize*4))
	require.NoError(t, err)

	c := NewCache(s, 1) // capacity 1 forces eviction on every new page
	require.NoError(t, c.Write(0, []byte("page0")))
	require.NoError(t, c.Write(PageSize, []byte("page1"))) // evicts page 0

	resident, capacity := c.Stats()
	require.Equal(t, 1, resident)
	require.Equal(t, 1, capacity)

	raw, err := s.ReadAt(0, len("page0"))
	require.NoError(t, err)
	require.Equal(t, "page0", string(raw))
}

func TestCacheReadSpansMultiplePages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Append(make([]byte, PageSize*2))
	require.NoError(t, err)

	c := NewCache(s, 4)
	boundary := PageSize - 3
	require.NoError(t, c.Write(int64(boundary), []byte("crossing")))

	got, err := c.Read(int64(boundary), len("crossing"))
	require.NoError(t, err)
	require.Equal(t, "crossing", string(got))
}
