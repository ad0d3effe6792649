package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightledger/matchengine/internal/domain"
)

func TestTradeStorePersistAndQuery(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenTradeStore(filepath.Join(dir, "trades.dat"), filepath.Join(dir, "trades.idx"))
	require.NoError(t, err)
	defer s.Close()

	tr := &domain.Trade{
		ID: 1, BuyOrderID: 10, SellOrderID: 20,
		BuyUserID: "alice", SellUserID: "bob", Symbol: "AAPL",
		Price: decimal.NewFromFloat(150), Quantity: 30, Timestamp: time.Now().UTC(),
	}
	off, err := s.Persist(tr)
	require.NoError(t, err)
	require.True(t, off.Valid())

	got, ok, err := s.LoadByID(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", got.BuyUserID)

	forAlice, err := s.LoadForUser("alice")
	require.NoError(t, err)
	require.Len(t, forAlice, 1)

	forBob, err := s.LoadForUser("bob")
	require.NoError(t, err)
	require.Len(t, forBob, 1)
}

func TestTradeStoreReopenDerivesUserIndex(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "trades.dat")
	idxPath := filepath.Join(dir, "trades.idx")

	s, err := OpenTradeStore(dataPath, idxPath)
	require.NoError(t, err)
	_, err = s.Persist(&domain.Trade{
		ID: 1, BuyOrderID: 1, SellOrderID: 2,
		BuyUserID: "alice", SellUserID: "bob", Symbol: "AAPL",
		Price: decimal.NewFromFloat(150), Quantity: 10, Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := OpenTradeStore(dataPath, idxPath)
	require.NoError(t, err)
	defer s2.Close()

	forAlice, err := s2.LoadForUser("alice")
	require.NoError(t, err)
	require.Len(t, forAlice, 1)
}
