package storage

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightledger/matchengine/internal/domain"
)

func TestUserStorePersistLoadUpdate(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenUserStore(filepath.Join(dir, "users.dat"), filepath.Join(dir, "users.idx"))
	require.NoError(t, err)
	defer s.Close()

	u := domain.NewUser("alice", decimal.NewFromFloat(10000))
	off, err := s.Persist(u)
	require.NoError(t, err)

	u.AddHolding("AAPL", 30)
	u.DeductCash(decimal.NewFromFloat(4500))
	require.NoError(t, s.Update(u, off))

	got, _, ok, err := s.LoadByID("alice")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int32(30), got.Holding("AAPL"))
	require.True(t, got.CashBalance.Equal(decimal.NewFromFloat(5500)))
}

func TestUserStoreReopenRebuilds(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "users.dat")
	idxPath := filepath.Join(dir, "users.idx")

	s, err := OpenUserStore(dataPath, idxPath)
	require.NoError(t, err)
	_, err = s.Persist(domain.NewUser("alice", decimal.NewFromFloat(1000)))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := OpenUserStore(dataPath, idxPath)
	require.NoError(t, err)
	defer s2.Close()
	require.True(t, s2.Exists("alice"))
}
