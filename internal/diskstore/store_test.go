package diskstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendReadOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	off1, err := s.Append([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, int64(0), off1)

	off2, err := s.Append([]byte("world!"))
	require.NoError(t, err)
	require.Equal(t, int64(5), off2)

	b, err := s.ReadAt(off1, 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	require.NoError(t, s.OverwriteAt(off1, []byte("HELLO")))
	b, err = s.ReadAt(off1, 5)
	require.NoError(t, err)
	require.Equal(t, "HELLO", string(b))

	require.Equal(t, int64(11), s.Size())
}

func TestReadBeyondEndFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Append([]byte("abc"))
	require.NoError(t, err)

	_, err = s.ReadAt(0, 10)
	require.Error(t, err)
}

func TestOverwriteBeyondEndFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	err = s.OverwriteAt(0, []byte("abc"))
	require.Error(t, err)
}

func TestReopenPreservesSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.dat")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Append([]byte("persisted"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	require.Equal(t, int64(len("persisted")), s2.Size())
}
