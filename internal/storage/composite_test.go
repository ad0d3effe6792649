package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightledger/matchengine/internal/domain"
)

type fakeOrderUserMirror struct {
	orders    map[uint64]*domain.Order
	users     map[string]*domain.User
	failSave  bool
	closeErrs int
}

func newFakeOrderUserMirror() *fakeOrderUserMirror {
	return &fakeOrderUserMirror{orders: map[uint64]*domain.Order{}, users: map[string]*domain.User{}}
}

func (f *fakeOrderUserMirror) SaveOrder(o *domain.Order) error {
	if f.failSave {
		return errors.New("mirror unavailable")
	}
	f.orders[o.ID] = o.Clone()
	return nil
}

func (f *fakeOrderUserMirror) SaveUser(u *domain.User) error {
	if f.failSave {
		return errors.New("mirror unavailable")
	}
	f.users[u.ID] = u.Clone()
	return nil
}

func (f *fakeOrderUserMirror) Close() error { return nil }

func TestCompositeOrderStoreMirrorsOnPersist(t *testing.T) {
	dir := t.TempDir()
	primary, err := OpenOrderStore(filepath.Join(dir, "orders.dat"), filepath.Join(dir, "orders.idx"))
	require.NoError(t, err)

	mirror := newFakeOrderUserMirror()
	c := NewCompositeOrderStore(primary, mirror)
	defer c.Close()

	o := &domain.Order{ID: 1, UserID: "alice", Symbol: "AAPL", Side: domain.Buy, Price: decimal.NewFromFloat(100), OriginalQty: 10, RemainingQty: 10, Status: domain.StatusActive}
	off, err := c.Persist(o)
	require.NoError(t, err)
	require.True(t, off.Valid())

	require.Contains(t, mirror.orders, uint64(1))
	require.True(t, c.Exists(1))
}

func TestCompositeOrderStoreSurvivesMirrorFailure(t *testing.T) {
	dir := t.TempDir()
	primary, err := OpenOrderStore(filepath.Join(dir, "orders.dat"), filepath.Join(dir, "orders.idx"))
	require.NoError(t, err)

	mirror := newFakeOrderUserMirror()
	mirror.failSave = true
	c := NewCompositeOrderStore(primary, mirror)
	defer c.Close()

	o := &domain.Order{ID: 1, UserID: "alice", Symbol: "AAPL", Side: domain.Buy, Price: decimal.NewFromFloat(100), OriginalQty: 10, RemainingQty: 10, Status: domain.StatusActive}
	_, err = c.Persist(o)
	require.NoError(t, err, "a failing mirror must never fail the primary write")
	require.True(t, c.Exists(1))
}

type fakeTradeMirror struct {
	trades   map[uint64]*domain.Trade
	failSave bool
}

func newFakeTradeMirror() *fakeTradeMirror {
	return &fakeTradeMirror{trades: map[uint64]*domain.Trade{}}
}

func (f *fakeTradeMirror) SaveTrade(t *domain.Trade) error {
	if f.failSave {
		return errors.New("postgres unavailable")
	}
	f.trades[t.ID] = t.Clone()
	return nil
}

func (f *fakeTradeMirror) Close() error { return nil }

func TestCompositeTradeStoreMirrorsOnPersist(t *testing.T) {
	dir := t.TempDir()
	primary, err := OpenTradeStore(filepath.Join(dir, "trades.dat"), filepath.Join(dir, "trades.idx"))
	require.NoError(t, err)

	mirror := newFakeTradeMirror()
	c := NewCompositeTradeStore(primary, mirror)
	defer c.Close()

	tr := &domain.Trade{ID: 1, BuyOrderID: 1, SellOrderID: 2, BuyUserID: "alice", SellUserID: "bob", Symbol: "AAPL", Price: decimal.NewFromFloat(100), Quantity: 5}
	_, err = c.Persist(tr)
	require.NoError(t, err)
	require.Contains(t, mirror.trades, uint64(1))
}
