package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightledger/matchengine/internal/domain"
)

func newOrder(id uint64, user, symbol string, side domain.Side, price float64, qty int32) *domain.Order {
	return &domain.Order{
		ID:           id,
		UserID:       user,
		Symbol:       symbol,
		Side:         side,
		Price:        decimal.NewFromFloat(price),
		OriginalQty:  qty,
		RemainingQty: qty,
		Status:       domain.StatusActive,
		Timestamp:    time.Now().UTC(),
	}
}

func TestOrderStorePersistLoadUpdate(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenOrderStore(filepath.Join(dir, "orders.dat"), filepath.Join(dir, "orders.idx"))
	require.NoError(t, err)
	defer s.Close()

	o := newOrder(1, "alice", "AAPL", domain.Buy, 150, 10)
	off, err := s.Persist(o)
	require.NoError(t, err)
	require.True(t, off.Valid())

	got, off2, ok, err := s.LoadByID(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, off, off2)
	require.Equal(t, o.UserID, got.UserID)

	got.ApplyFill(10)
	require.NoError(t, s.Update(got, off))

	reloaded, err := s.Load(off)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFilled, reloaded.Status)
	require.Equal(t, int32(0), reloaded.RemainingQty)
}

func TestOrderStoreSecondaryIndexes(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenOrderStore(filepath.Join(dir, "orders.dat"), filepath.Join(dir, "orders.idx"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Persist(newOrder(1, "alice", "AAPL", domain.Buy, 150, 10))
	require.NoError(t, err)
	_, err = s.Persist(newOrder(2, "bob", "AAPL", domain.Sell, 151, 5))
	require.NoError(t, err)
	_, err = s.Persist(newOrder(3, "alice", "MSFT", domain.Buy, 300, 2))
	require.NoError(t, err)

	bySymbol, err := s.LoadForSymbol("AAPL")
	require.NoError(t, err)
	require.Len(t, bySymbol, 2)

	byUser, err := s.LoadForUser("alice")
	require.NoError(t, err)
	require.Len(t, byUser, 2)

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestOrderStoreReopenRebuildsFromIndex(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "orders.dat")
	idxPath := filepath.Join(dir, "orders.idx")

	s, err := OpenOrderStore(dataPath, idxPath)
	require.NoError(t, err)
	_, err = s.Persist(newOrder(1, "alice", "AAPL", domain.Buy, 150, 10))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := OpenOrderStore(dataPath, idxPath)
	require.NoError(t, err)
	defer s2.Close()

	o, _, ok, err := s2.LoadByID(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", o.UserID)
}

func TestOrderStoreCorruptSidecarRebuildsFromData(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "orders.dat")
	idxPath := filepath.Join(dir, "orders.idx")

	s, err := OpenOrderStore(dataPath, idxPath)
	require.NoError(t, err)
	_, err = s.Persist(newOrder(1, "alice", "AAPL", domain.Buy, 150, 10))
	require.NoError(t, err)
	_, err = s.Persist(newOrder(2, "bob", "AAPL", domain.Sell, 151, 5))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Corrupt the sidecar: truncate it so the magic/count can't parse.
	require.NoError(t, os.WriteFile(idxPath, []byte{1, 2, 3}, 0o644))

	s2, err := OpenOrderStore(dataPath, idxPath)
	require.NoError(t, err)
	defer s2.Close()

	all, err := s2.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
}
