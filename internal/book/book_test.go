package book

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightledger/matchengine/internal/domain"
	"github.com/brightledger/matchengine/internal/offset"
	"github.com/brightledger/matchengine/internal/storage"
)

func newTestStore(t *testing.T) *storage.DiskOrderStore {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.OpenOrderStore(filepath.Join(dir, "orders.dat"), filepath.Join(dir, "orders.idx"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustPersist(t *testing.T, s *storage.DiskOrderStore, o *domain.Order) offset.Offset {
	t.Helper()
	off, err := s.Persist(o)
	require.NoError(t, err)
	return off
}

func newOrder(id uint64, user, symbol string, side domain.Side, price float64, qty int32, ts time.Time) *domain.Order {
	return &domain.Order{
		ID: id, UserID: user, Symbol: symbol, Side: side,
		Price: decimal.NewFromFloat(price), OriginalQty: qty, RemainingQty: qty,
		Status: domain.StatusActive, Timestamp: ts,
	}
}

// Scenario A (simple cross): one resting sell at 150, one incoming buy at
// 150 for the same size must fully cross with exactly one trade.
func TestSimpleCross(t *testing.T) {
	store := newTestStore(t)
	b := New("AAPL", store)

	now := time.Now().UTC()
	sell := newOrder(1, "bob", "AAPL", domain.Sell, 150, 100, now)
	sellOff := mustPersist(t, store, sell)
	_, err := b.Submit(sell, sellOff)
	require.NoError(t, err)

	buy := newOrder(2, "alice", "AAPL", domain.Buy, 150, 100, now.Add(time.Second))
	buyOff := mustPersist(t, store, buy)
	trades, err := b.Submit(buy, buyOff)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.True(t, trades[0].Price.Equal(decimal.NewFromFloat(150)))
	require.Equal(t, int32(100), trades[0].Quantity)
	require.Equal(t, domain.StatusFilled, buy.Status)
	require.Equal(t, int32(0), buy.RemainingQty)

	bid, err := b.BestBid()
	require.NoError(t, err)
	require.Nil(t, bid)
}

// Scenario B (price-time priority): three resting sells at 155, 152, 153
// in that submission order; an incoming buy crossing all three must fill
// against 152 first.
func TestPriceTimePriority(t *testing.T) {
	store := newTestStore(t)
	b := New("AAPL", store)

	base := time.Now().UTC()
	prices := []float64{155, 152, 153}
	for i, p := range prices {
		o := newOrder(uint64(i+1), "bob", "AAPL", domain.Sell, p, 10, base.Add(time.Duration(i)*time.Second))
		off := mustPersist(t, store, o)
		_, err := b.Submit(o, off)
		require.NoError(t, err)
	}

	buy := newOrder(10, "alice", "AAPL", domain.Buy, 160, 10, base.Add(10*time.Second))
	buyOff := mustPersist(t, store, buy)
	trades, err := b.Submit(buy, buyOff)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.True(t, trades[0].Price.Equal(decimal.NewFromFloat(152)), "must match the best (lowest) ask first, not submission order")
	require.Equal(t, uint64(2), trades[0].SellOrderID)
}

// Scenario C (self-match prevention): alice sells 300 then alice buys
// 300 at the same price. Zero trades; both orders rest.
func TestSelfMatchPrevention(t *testing.T) {
	store := newTestStore(t)
	b := New("MSFT", store)

	now := time.Now().UTC()
	sell := newOrder(1, "alice", "MSFT", domain.Sell, 100, 300, now)
	sellOff := mustPersist(t, store, sell)
	_, err := b.Submit(sell, sellOff)
	require.NoError(t, err)

	buy := newOrder(2, "alice", "MSFT", domain.Buy, 100, 300, now.Add(time.Second))
	buyOff := mustPersist(t, store, buy)
	trades, err := b.Submit(buy, buyOff)
	require.NoError(t, err)
	require.Empty(t, trades)
	require.Equal(t, domain.StatusActive, sell.Status)
	require.Equal(t, domain.StatusActive, buy.Status)

	bidLevels, askLevels := b.Depth()
	require.Equal(t, 1, bidLevels)
	require.Equal(t, 1, askLevels)
}

// A third-party order at the same price as a self-match should still
// trade: self-match prevention skips the whole level only for that
// aggressor, the level itself stays intact for everyone else.
func TestSelfMatchSkipsEntireLevelForThatOrderOnly(t *testing.T) {
	store := newTestStore(t)
	b := New("MSFT", store)

	now := time.Now().UTC()
	aliceSell := newOrder(1, "alice", "MSFT", domain.Sell, 100, 50, now)
	off := mustPersist(t, store, aliceSell)
	_, err := b.Submit(aliceSell, off)
	require.NoError(t, err)

	// Alice's own buy at the same price cannot trade against her resting
	// sell; it rests instead (level still has only alice's order).
	aliceBuy := newOrder(2, "alice", "MSFT", domain.Buy, 100, 50, now.Add(time.Second))
	off2 := mustPersist(t, store, aliceBuy)
	trades, err := b.Submit(aliceBuy, off2)
	require.NoError(t, err)
	require.Empty(t, trades)

	// Bob's sell at 99 crosses alice's resting bid at 100 and fills
	// completely there: alice's bid level is open to everyone but alice.
	// Carol's buy then fills against alice's resting sell at 100, the
	// level alice's own buy had skipped.
	bobSell := newOrder(3, "bob", "MSFT", domain.Sell, 99, 20, now.Add(2*time.Second))
	off3 := mustPersist(t, store, bobSell)
	_, err = b.Submit(bobSell, off3)
	require.NoError(t, err)

	carolBuy := newOrder(4, "carol", "MSFT", domain.Buy, 100, 20, now.Add(3*time.Second))
	off4 := mustPersist(t, store, carolBuy)
	trades, err = b.Submit(carolBuy, off4)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, uint64(1), trades[0].SellOrderID)
	require.True(t, trades[0].Price.Equal(decimal.NewFromFloat(100)))
}

func TestPartialFillStaysAtHeadOfLevel(t *testing.T) {
	store := newTestStore(t)
	b := New("AAPL", store)

	now := time.Now().UTC()
	first := newOrder(1, "bob", "AAPL", domain.Sell, 150, 100, now)
	off1 := mustPersist(t, store, first)
	_, err := b.Submit(first, off1)
	require.NoError(t, err)

	second := newOrder(2, "dave", "AAPL", domain.Sell, 150, 100, now.Add(time.Second))
	off2 := mustPersist(t, store, second)
	_, err = b.Submit(second, off2)
	require.NoError(t, err)

	// A partial-size buy should fill against the first (still-resting)
	// order, not the second, even though the first is now half full.
	buy1 := newOrder(3, "alice", "AAPL", domain.Buy, 150, 40, now.Add(2*time.Second))
	off3 := mustPersist(t, store, buy1)
	trades, err := b.Submit(buy1, off3)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, uint64(1), trades[0].SellOrderID)

	buy2 := newOrder(4, "alice", "AAPL", domain.Buy, 150, 40, now.Add(3*time.Second))
	off4 := mustPersist(t, store, buy2)
	trades, err = b.Submit(buy2, off4)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, uint64(1), trades[0].SellOrderID, "partially filled order keeps priority at the head of its level")
}

func TestCancelRefundsAndRemovesFromBook(t *testing.T) {
	store := newTestStore(t)
	b := New("AAPL", store)

	now := time.Now().UTC()
	o := newOrder(1, "alice", "AAPL", domain.Buy, 100, 10, now)
	off := mustPersist(t, store, o)
	_, err := b.Submit(o, off)
	require.NoError(t, err)

	snapshot, err := b.Cancel(1, "alice")
	require.NoError(t, err)
	require.Equal(t, int32(10), snapshot.RemainingQty)

	bid, err := b.BestBid()
	require.NoError(t, err)
	require.Nil(t, bid)

	_, err = b.Cancel(1, "alice")
	require.ErrorIs(t, err, ErrOrderTerminal)
}

func TestCancelRejectsWrongOwner(t *testing.T) {
	store := newTestStore(t)
	b := New("AAPL", store)

	o := newOrder(1, "alice", "AAPL", domain.Buy, 100, 10, time.Now().UTC())
	off := mustPersist(t, store, o)
	_, err := b.Submit(o, off)
	require.NoError(t, err)

	_, err = b.Cancel(1, "mallory")
	require.ErrorIs(t, err, ErrNotOwner)
}

func TestRebuildFromStorageReproducesFIFO(t *testing.T) {
	store := newTestStore(t)

	base := time.Now().UTC()
	for i := 1; i <= 3; i++ {
		o := newOrder(uint64(i), "bob", "AAPL", domain.Sell, 150, 10, base.Add(time.Duration(i)*time.Second))
		_, err := store.Persist(o)
		require.NoError(t, err)
	}

	b := New("AAPL", store)
	require.NoError(t, b.RebuildFromStorage())

	ask, err := b.BestAsk()
	require.NoError(t, err)
	require.Equal(t, uint64(1), ask.ID, "rebuild must restore submission-order FIFO within a price level")
}
