package engine

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/brightledger/matchengine/internal/domain"
	"github.com/brightledger/matchengine/internal/storage"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	orderStore, err := storage.OpenOrderStore(filepath.Join(dir, "orders.dat"), filepath.Join(dir, "orders.idx"))
	require.NoError(t, err)
	userStore, err := storage.OpenUserStore(filepath.Join(dir, "users.dat"), filepath.Join(dir, "users.idx"))
	require.NoError(t, err)
	tradeStore, err := storage.OpenTradeStore(filepath.Join(dir, "trades.dat"), filepath.Join(dir, "trades.idx"))
	require.NoError(t, err)
	symbolStore, err := storage.OpenSymbolStore(filepath.Join(dir, "symbols.dat"))
	require.NoError(t, err)
	metadataStore, err := storage.OpenMetadataStore(filepath.Join(dir, "metadata.dat"))
	require.NoError(t, err)

	e := New("admin123", 50, Stores{
		Order: orderStore, User: userStore, Trade: tradeStore,
		Symbol: symbolStore, Metadata: metadataStore,
	})
	require.NoError(t, e.Recover())
	return e
}

func seedAliceBob(t *testing.T, e *Engine) {
	t.Helper()
	require.NoError(t, e.AddSymbol("AAPL", "admin123"))
	_, err := e.CreateUser("alice", decimal.NewFromInt(10000))
	require.NoError(t, err)
	_, err = e.CreateUser("bob", decimal.NewFromInt(10000))
	require.NoError(t, err)

	e.userMu.Lock()
	e.users["bob"].user.AddHolding("AAPL", 100)
	e.userMu.Unlock()
}

// A resting sell crossed by an incoming buy, leaving a partial remainder.
func TestScenarioASimpleCross(t *testing.T) {
	e := newTestEngine(t)
	seedAliceBob(t, e)

	sell, trades, err := e.PlaceOrder("bob", "AAPL", domain.Sell, decimal.NewFromInt(150), 50)
	require.NoError(t, err)
	require.Empty(t, trades)
	require.Equal(t, domain.StatusActive, sell.Status)

	_, trades, err = e.PlaceOrder("alice", "AAPL", domain.Buy, decimal.NewFromInt(150), 30)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	require.Equal(t, int32(30), trades[0].Quantity)

	alice, err := e.GetUser("alice")
	require.NoError(t, err)
	require.True(t, alice.CashBalance.Equal(decimal.NewFromInt(5500)))
	require.Equal(t, int32(30), alice.Holding("AAPL"))

	bob, err := e.GetUser("bob")
	require.NoError(t, err)
	require.True(t, bob.CashBalance.Equal(decimal.NewFromInt(14500)))
}

func TestPlaceOrderRejectsInsufficientFunds(t *testing.T) {
	e := newTestEngine(t)
	seedAliceBob(t, e)

	_, _, err := e.PlaceOrder("alice", "AAPL", domain.Buy, decimal.NewFromInt(1000), 20)
	require.Error(t, err)
	var engErr *Error
	require.ErrorAs(t, err, &engErr)
	require.Equal(t, KindResource, engErr.Kind)

	alice, err := e.GetUser("alice")
	require.NoError(t, err)
	require.True(t, alice.CashBalance.Equal(decimal.NewFromInt(10000)), "a rejected reservation must not touch cash")
}

func TestPlaceOrderAtExactCashBoundarySucceeds(t *testing.T) {
	e := newTestEngine(t)
	seedAliceBob(t, e)

	_, _, err := e.PlaceOrder("alice", "AAPL", domain.Buy, decimal.NewFromInt(100), 100)
	require.NoError(t, err)

	alice, err := e.GetUser("alice")
	require.NoError(t, err)
	require.True(t, alice.CashBalance.IsZero())
}

func TestCancelOrderRefundsReservation(t *testing.T) {
	e := newTestEngine(t)
	seedAliceBob(t, e)

	order, _, err := e.PlaceOrder("alice", "AAPL", domain.Buy, decimal.NewFromInt(100), 10)
	require.NoError(t, err)

	require.NoError(t, e.CancelOrder(order.ID, "alice"))

	alice, err := e.GetUser("alice")
	require.NoError(t, err)
	require.True(t, alice.CashBalance.Equal(decimal.NewFromInt(10000)), "cancel of an unmatched order must restore cash byte-exactly")

	active, err := e.GetUserActiveOrders("alice")
	require.NoError(t, err)
	require.Empty(t, active)
}

// Two resting sells from distinct users at the same price, one of them
// fully consumed by a single larger incoming buy: the fully-filled
// counterparty's order must drop out of its own user's active set, not
// just the incoming order's.
func TestPartialSweepClearsFullyFilledCounterparty(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.AddSymbol("AAPL", "admin123"))

	_, err := e.CreateUser("carol", decimal.NewFromInt(10000))
	require.NoError(t, err)
	_, err = e.CreateUser("dave", decimal.NewFromInt(10000))
	require.NoError(t, err)
	_, err = e.CreateUser("erin", decimal.NewFromInt(100000))
	require.NoError(t, err)

	e.userMu.Lock()
	e.users["carol"].user.AddHolding("AAPL", 50)
	e.users["dave"].user.AddHolding("AAPL", 50)
	e.userMu.Unlock()

	carolSell, _, err := e.PlaceOrder("carol", "AAPL", domain.Sell, decimal.NewFromInt(150), 50)
	require.NoError(t, err)
	daveSell, _, err := e.PlaceOrder("dave", "AAPL", domain.Sell, decimal.NewFromInt(150), 50)
	require.NoError(t, err)

	_, trades, err := e.PlaceOrder("erin", "AAPL", domain.Buy, decimal.NewFromInt(150), 80)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	carolActive, err := e.GetUserActiveOrders("carol")
	require.NoError(t, err)
	require.Empty(t, carolActive, "carol's order was fully filled as the counterparty and must be cleared from her active set")

	carolOrder, err := e.GetOrder(carolSell.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFilled, carolOrder.Status)

	daveActive, err := e.GetUserActiveOrders("dave")
	require.NoError(t, err)
	require.Len(t, daveActive, 1)
	require.Equal(t, daveSell.ID, daveActive[0].ID)
	require.Equal(t, int32(20), daveActive[0].RemainingQty)
}

func TestRecoveryRebuildsBookAndUsers(t *testing.T) {
	dir := t.TempDir()
	orderStore, err := storage.OpenOrderStore(filepath.Join(dir, "orders.dat"), filepath.Join(dir, "orders.idx"))
	require.NoError(t, err)
	userStore, err := storage.OpenUserStore(filepath.Join(dir, "users.dat"), filepath.Join(dir, "users.idx"))
	require.NoError(t, err)
	tradeStore, err := storage.OpenTradeStore(filepath.Join(dir, "trades.dat"), filepath.Join(dir, "trades.idx"))
	require.NoError(t, err)
	symbolStore, err := storage.OpenSymbolStore(filepath.Join(dir, "symbols.dat"))
	require.NoError(t, err)
	metadataStore, err := storage.OpenMetadataStore(filepath.Join(dir, "metadata.dat"))
	require.NoError(t, err)

	e1 := New("admin123", 50, Stores{Order: orderStore, User: userStore, Trade: tradeStore, Symbol: symbolStore, Metadata: metadataStore})
	require.NoError(t, e1.Recover())
	require.NoError(t, e1.AddSymbol("AAPL", "admin123"))
	_, err = e1.CreateUser("bob", decimal.NewFromInt(1000))
	require.NoError(t, err)
	e1.userMu.Lock()
	e1.users["bob"].user.AddHolding("AAPL", 10)
	e1.userMu.Unlock()
	_, _, err = e1.PlaceOrder("bob", "AAPL", domain.Sell, decimal.NewFromInt(150), 10)
	require.NoError(t, err)
	require.NoError(t, e1.FlushMetadata())
	require.NoError(t, orderStore.Close())
	require.NoError(t, userStore.Close())
	require.NoError(t, tradeStore.Close())
	require.NoError(t, symbolStore.Close())
	require.NoError(t, metadataStore.Close())

	orderStore2, err := storage.OpenOrderStore(filepath.Join(dir, "orders.dat"), filepath.Join(dir, "orders.idx"))
	require.NoError(t, err)
	userStore2, err := storage.OpenUserStore(filepath.Join(dir, "users.dat"), filepath.Join(dir, "users.idx"))
	require.NoError(t, err)
	tradeStore2, err := storage.OpenTradeStore(filepath.Join(dir, "trades.dat"), filepath.Join(dir, "trades.idx"))
	require.NoError(t, err)
	symbolStore2, err := storage.OpenSymbolStore(filepath.Join(dir, "symbols.dat"))
	require.NoError(t, err)
	metadataStore2, err := storage.OpenMetadataStore(filepath.Join(dir, "metadata.dat"))
	require.NoError(t, err)

	e2 := New("admin123", 50, Stores{Order: orderStore2, User: userStore2, Trade: tradeStore2, Symbol: symbolStore2, Metadata: metadataStore2})
	require.NoError(t, e2.Recover())

	snap, err := e2.GetOrderBook("AAPL")
	require.NoError(t, err)
	require.Len(t, snap.Asks, 1)
	require.Equal(t, int32(10), snap.Asks[0].TotalQty)

	bob, err := e2.GetUser("bob")
	require.NoError(t, err)
	require.Equal(t, "bob", bob.ID)
}
