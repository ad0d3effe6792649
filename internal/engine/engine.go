// Package engine is the matching engine coordinator: it owns the global
// id counters, the symbol-to-book registry, the in-memory user registry,
// and the lock ordering that keeps all of it consistent under
// concurrent submitters. It never talks to a socket or an HTTP request;
// cmd/engineserver is the only thing that calls into it from outside.
package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightledger/matchengine/internal/applog"
	"github.com/brightledger/matchengine/internal/book"
	"github.com/brightledger/matchengine/internal/domain"
	"github.com/brightledger/matchengine/internal/offset"
	"github.com/brightledger/matchengine/internal/records"
	"github.com/brightledger/matchengine/internal/storage"
)

// userEntry pairs the cached user with its disk offset so Engine can
// persist updates without a second lookup.
type userEntry struct {
	user *domain.User
	off  offset.Offset
}

// Engine coordinates every symbol's book, the user registry and the
// global id counters. Lock order is always engineMu -> userMu ->
// tradeMu -> a book's own internal mutex; every method below acquires
// in that order and never holds two of its own locks at once longer
// than necessary.
type Engine struct {
	engineMu sync.Mutex
	books    map[string]*book.OrderBook
	symbols  map[string]struct{}

	nextOrderID uint64
	nextTradeID uint64

	userMu sync.RWMutex
	users  map[string]*userEntry

	tradeMu sync.Mutex

	adminUserID        string
	metadataFlushEvery int
	opsSinceFlush      int

	orderStore    storage.OrderStore
	userStore     storage.UserStore
	tradeStore    storage.TradeStore
	symbolStore   storage.SymbolStore
	metadataStore storage.MetadataStore
}

// Stores bundles the persistence layer Engine needs. Each field may be
// a plain Disk*Store or a storage.Composite* wrapper with mirrors
// attached; Engine doesn't care which.
type Stores struct {
	Order    storage.OrderStore
	User     storage.UserStore
	Trade    storage.TradeStore
	Symbol   storage.SymbolStore
	Metadata storage.MetadataStore
}

// New constructs an engine against the given stores. Call Recover before
// serving traffic to repopulate the in-memory registry from disk.
func New(adminUserID string, metadataFlushEvery int, s Stores) *Engine {
	return &Engine{
		books:              make(map[string]*book.OrderBook),
		symbols:            make(map[string]struct{}),
		users:              make(map[string]*userEntry),
		adminUserID:        adminUserID,
		metadataFlushEvery: metadataFlushEvery,
		orderStore:         s.Order,
		userStore:          s.User,
		tradeStore:         s.Trade,
		symbolStore:        s.Symbol,
		metadataStore:      s.Metadata,
	}
}

// Recover restores next_order_id/next_trade_id, the user registry, the
// symbol set, and every book's resting orders from disk. It must run
// before any other Engine method.
func (e *Engine) Recover() error {
	meta, err := e.metadataStore.Load()
	if err != nil {
		return ioErr(err, "load metadata")
	}
	e.engineMu.Lock()
	e.nextOrderID = meta.NextOrderID
	e.nextTradeID = meta.NextTradeID
	e.engineMu.Unlock()

	users, err := e.userStore.LoadAll()
	if err != nil {
		return ioErr(err, "load users")
	}
	e.userMu.Lock()
	for _, u := range users {
		_, off, found, err := e.userStore.LoadByID(u.ID)
		if err != nil {
			e.userMu.Unlock()
			return ioErr(err, "locate offset for user %s", u.ID)
		}
		if !found {
			continue
		}
		e.users[u.ID] = &userEntry{user: u, off: off}
	}
	e.userMu.Unlock()

	symbols, err := e.symbolStore.LoadAll()
	if err != nil {
		return ioErr(err, "load symbols")
	}
	e.engineMu.Lock()
	for _, sym := range symbols {
		e.symbols[sym] = struct{}{}
		if _, ok := e.books[sym]; !ok {
			e.books[sym] = book.New(sym, e.orderStore)
		}
	}
	books := make([]*book.OrderBook, 0, len(e.books))
	for _, b := range e.books {
		books = append(books, b)
	}
	e.engineMu.Unlock()

	for _, b := range books {
		if err := b.RebuildFromStorage(); err != nil {
			return ioErr(err, "rebuild book for %s", b.Symbol)
		}
	}

	applog.Info("engine recovered", applog.Fields{
		"users": len(users), "symbols": len(symbols),
		"next_order_id": meta.NextOrderID, "next_trade_id": meta.NextTradeID,
	})
	return nil
}

// CreateUser registers a new user with the given starting cash. Fails
// if the id is already taken.
func (e *Engine) CreateUser(userID string, initialCash decimal.Decimal) (*domain.User, error) {
	if userID == "" {
		return nil, validationErr("user id must not be empty")
	}
	if initialCash.IsNegative() {
		return nil, validationErr("initial cash must not be negative")
	}

	e.userMu.Lock()
	defer e.userMu.Unlock()

	if _, exists := e.users[userID]; exists {
		return nil, validationErr("user %s already exists", userID)
	}

	u := domain.NewUser(userID, initialCash)
	off, err := e.userStore.Persist(u)
	if err != nil {
		return nil, ioErr(err, "persist new user %s", userID)
	}
	e.users[userID] = &userEntry{user: u, off: off}
	return u.Clone(), nil
}

// AddSymbol lists a new tradeable instrument. Only the configured
// administrator id may call this.
func (e *Engine) AddSymbol(symbol, requesterID string) error {
	if requesterID != e.adminUserID {
		return validationErr("only the administrator may list symbols")
	}
	if symbol == "" {
		return validationErr("symbol must not be empty")
	}

	e.engineMu.Lock()
	defer e.engineMu.Unlock()

	if _, exists := e.symbols[symbol]; exists {
		return nil
	}
	if err := e.symbolStore.Add(symbol); err != nil {
		return ioErr(err, "persist symbol %s", symbol)
	}
	e.symbols[symbol] = struct{}{}
	e.books[symbol] = book.New(symbol, e.orderStore)
	return nil
}

// SymbolExists reports whether symbol has been listed.
func (e *Engine) SymbolExists(symbol string) bool {
	e.engineMu.Lock()
	defer e.engineMu.Unlock()
	_, ok := e.symbols[symbol]
	return ok
}

func (e *Engine) bookFor(symbol string) (*book.OrderBook, bool) {
	e.engineMu.Lock()
	defer e.engineMu.Unlock()
	b, ok := e.books[symbol]
	return b, ok
}

// PlaceOrder validates, reserves funds/shares, persists, submits to the
// book, and settles every resulting trade, following the reservation ->
// allocate -> persist -> submit -> settle -> flush pipeline.
func (e *Engine) PlaceOrder(userID, symbol string, side domain.Side, price decimal.Decimal, qty int32) (*domain.Order, []*domain.Trade, error) {
	if qty <= 0 {
		return nil, nil, validationErr("quantity must be positive")
	}
	if price.IsNegative() || price.IsZero() {
		return nil, nil, validationErr("price must be positive")
	}
	b, ok := e.bookFor(symbol)
	if !ok {
		return nil, nil, validationErr("unknown symbol %s", symbol)
	}

	e.engineMu.Lock()
	e.userMu.Lock()

	entry, ok := e.users[userID]
	if !ok {
		e.userMu.Unlock()
		e.engineMu.Unlock()
		return nil, nil, validationErr("unknown user %s", userID)
	}

	u := entry.user
	if side == domain.Buy {
		cost := price.Mul(decimal.NewFromInt32(qty))
		if !u.DeductCash(cost) {
			e.userMu.Unlock()
			e.engineMu.Unlock()
			return nil, nil, resourceErr("insufficient funds: need %s, have %s", cost.String(), u.CashBalance.String())
		}
	} else {
		if !u.DeductHolding(symbol, qty) {
			e.userMu.Unlock()
			e.engineMu.Unlock()
			return nil, nil, resourceErr("insufficient shares of %s", symbol)
		}
	}

	orderID := e.nextOrderID
	e.nextOrderID++

	order := &domain.Order{
		ID: orderID, UserID: userID, Symbol: symbol, Side: side,
		Price: price, OriginalQty: qty, RemainingQty: qty,
		Status: domain.StatusActive, Timestamp: time.Now().UTC(),
	}

	off, err := e.orderStore.Persist(order)
	if err != nil {
		// Reservation rollback: the order never touched the book.
		if side == domain.Buy {
			u.AddCash(price.Mul(decimal.NewFromInt32(qty)))
		} else {
			u.AddHolding(symbol, qty)
		}
		e.nextOrderID--
		e.userMu.Unlock()
		e.engineMu.Unlock()
		return nil, nil, ioErr(err, "persist order")
	}

	u.MarkActive(orderID)
	if err := e.userStore.Update(u, entry.off); err != nil {
		// Reservation rollback: restore cash/shares and retire the already
		// persisted order so recovery never rests it.
		u.ClearActive(orderID)
		if side == domain.Buy {
			u.AddCash(price.Mul(decimal.NewFromInt32(qty)))
		} else {
			u.AddHolding(symbol, qty)
		}
		order.Status = domain.StatusCancelled
		if uerr := e.orderStore.Update(order, off); uerr != nil {
			applog.Warn("could not retire order after reservation rollback", applog.Fields{"order": orderID, "error": uerr.Error()})
		}
		e.userMu.Unlock()
		e.engineMu.Unlock()
		return nil, nil, ioErr(err, "persist reserving user %s", userID)
	}

	e.userMu.Unlock()
	e.engineMu.Unlock()

	trades, err := b.Submit(order, off)
	if err != nil {
		return order.Clone(), nil, ioErr(err, "submit order %d to book", orderID)
	}

	for _, t := range trades {
		if err := e.settleTrade(t); err != nil {
			applog.Error("trade settlement failed, aborting process", applog.Fields{"trade": fmt.Sprintf("%+v", t), "error": err.Error()})
			panic(fmt.Sprintf("engine: unrecoverable settlement failure: %v", err))
		}
	}

	e.bumpOpCounterAndMaybeFlush()

	return order.Clone(), trades, nil
}

// settleTrade allocates a trade id, credits the buyer's shares and the
// seller's cash, persists both users and the trade, and clears from each
// user's active set any order on either side of the trade that this match
// just filled completely - the incoming order as well as any counterparty
// resting order. This is the one place an io error is treated as fatal:
// once a trade is in flight, partial settlement would silently
// desynchronize cash and shares from trade history.
func (e *Engine) settleTrade(t *domain.Trade) error {
	e.engineMu.Lock()
	t.ID = e.nextTradeID
	e.nextTradeID++
	e.engineMu.Unlock()
	t.Timestamp = time.Now().UTC()

	buyOrder, _, found, err := e.orderStore.LoadByID(t.BuyOrderID)
	if err != nil {
		return fmt.Errorf("load buy order %d: %w", t.BuyOrderID, err)
	}
	if !found {
		return fmt.Errorf("settlement: buy order %d not found", t.BuyOrderID)
	}
	sellOrder, _, found, err := e.orderStore.LoadByID(t.SellOrderID)
	if err != nil {
		return fmt.Errorf("load sell order %d: %w", t.SellOrderID, err)
	}
	if !found {
		return fmt.Errorf("settlement: sell order %d not found", t.SellOrderID)
	}

	e.userMu.Lock()
	buyer, ok := e.users[t.BuyUserID]
	if !ok {
		e.userMu.Unlock()
		return fmt.Errorf("settlement: unknown buyer %s", t.BuyUserID)
	}
	seller, ok := e.users[t.SellUserID]
	if !ok {
		e.userMu.Unlock()
		return fmt.Errorf("settlement: unknown seller %s", t.SellUserID)
	}

	buyer.user.AddHolding(t.Symbol, t.Quantity)
	seller.user.AddCash(t.Price.Mul(decimal.NewFromInt32(t.Quantity)))

	if buyOrder.Status.Terminal() {
		buyer.user.ClearActive(t.BuyOrderID)
	}
	if sellOrder.Status.Terminal() {
		seller.user.ClearActive(t.SellOrderID)
	}

	if err := e.userStore.Update(buyer.user, buyer.off); err != nil {
		e.userMu.Unlock()
		return fmt.Errorf("persist buyer %s: %w", t.BuyUserID, err)
	}
	if err := e.userStore.Update(seller.user, seller.off); err != nil {
		e.userMu.Unlock()
		return fmt.Errorf("persist seller %s: %w", t.SellUserID, err)
	}
	e.userMu.Unlock()

	e.tradeMu.Lock()
	_, err = e.tradeStore.Persist(t)
	e.tradeMu.Unlock()
	if err != nil {
		return fmt.Errorf("persist trade %d: %w", t.ID, err)
	}
	return nil
}

func (e *Engine) bumpOpCounterAndMaybeFlush() {
	e.engineMu.Lock()
	e.opsSinceFlush++
	due := e.metadataFlushEvery > 0 && e.opsSinceFlush >= e.metadataFlushEvery
	if due {
		e.opsSinceFlush = 0
	}
	e.engineMu.Unlock()
	if due {
		if err := e.FlushMetadata(); err != nil {
			applog.Warn("periodic metadata flush failed", applog.Fields{"error": err.Error()})
		}
	}
}

// FlushMetadata persists the current id counters and totals. Safe to
// call at any time; mandatory on graceful shutdown.
func (e *Engine) FlushMetadata() error {
	e.engineMu.Lock()
	m := &records.Metadata{
		NextOrderID:  e.nextOrderID,
		NextTradeID:  e.nextTradeID,
		TotalUsers:   int32(len(e.users)),
		TotalOrders:  int32(e.nextOrderID - 1),
		TotalTrades:  int32(e.nextTradeID - 1),
		LastSaveTime: time.Now().UTC(),
	}
	e.engineMu.Unlock()
	if err := e.metadataStore.Save(m); err != nil {
		return ioErr(err, "save metadata")
	}
	return nil
}

// CancelOrder cancels order on behalf of userID and refunds the
// reservation.
func (e *Engine) CancelOrder(orderID uint64, userID string) error {
	e.engineMu.Lock()
	order, _, found, err := e.orderStore.LoadByID(orderID)
	e.engineMu.Unlock()
	if err != nil {
		return ioErr(err, "load order %d", orderID)
	}
	if !found {
		return stateErr("order %d not found", orderID)
	}
	b, ok := e.bookFor(order.Symbol)
	if !ok {
		return stateErr("order %d belongs to unknown book %s", orderID, order.Symbol)
	}

	snapshot, err := b.Cancel(orderID, userID)
	if err != nil {
		switch err {
		case book.ErrOrderNotFound:
			return stateErr("order %d not found", orderID)
		case book.ErrNotOwner:
			return stateErr("order %d is not owned by %s", orderID, userID)
		case book.ErrOrderTerminal:
			return stateErr("order %d is already in a terminal state", orderID)
		default:
			return ioErr(err, "cancel order %d", orderID)
		}
	}

	e.userMu.Lock()
	defer e.userMu.Unlock()
	entry, ok := e.users[userID]
	if !ok {
		return fmt.Errorf("engine: cancel refund: unknown user %s", userID)
	}
	if snapshot.Side == domain.Buy {
		entry.user.AddCash(snapshot.Price.Mul(decimal.NewFromInt32(snapshot.RemainingQty)))
	} else {
		entry.user.AddHolding(snapshot.Symbol, snapshot.RemainingQty)
	}
	entry.user.ClearActive(orderID)
	if err := e.userStore.Update(entry.user, entry.off); err != nil {
		return ioErr(err, "persist refund for user %s", userID)
	}
	return nil
}

// GetUser returns a copy of the user's current state.
func (e *Engine) GetUser(userID string) (*domain.User, error) {
	e.userMu.RLock()
	defer e.userMu.RUnlock()
	entry, ok := e.users[userID]
	if !ok {
		return nil, stateErr("user %s not found", userID)
	}
	return entry.user.Clone(), nil
}

// GetHoldings returns userID's holding of symbol.
func (e *Engine) GetHoldings(userID, symbol string) (int32, error) {
	u, err := e.GetUser(userID)
	if err != nil {
		return 0, err
	}
	return u.Holding(symbol), nil
}

// GetOrder loads an order by id.
func (e *Engine) GetOrder(orderID uint64) (*domain.Order, error) {
	o, _, found, err := e.orderStore.LoadByID(orderID)
	if err != nil {
		return nil, ioErr(err, "load order %d", orderID)
	}
	if !found {
		return nil, stateErr("order %d not found", orderID)
	}
	return o, nil
}

// BookSnapshot is the reporting view of one symbol's book.
type BookSnapshot struct {
	Symbol string
	Bids   []book.PriceLevelSnapshot
	Asks   []book.PriceLevelSnapshot
}

// GetOrderBook returns a snapshot of symbol's current book.
func (e *Engine) GetOrderBook(symbol string) (*BookSnapshot, error) {
	b, ok := e.bookFor(symbol)
	if !ok {
		return nil, validationErr("unknown symbol %s", symbol)
	}
	bids, asks, err := b.Snapshot()
	if err != nil {
		return nil, ioErr(err, "snapshot book for %s", symbol)
	}
	return &BookSnapshot{Symbol: symbol, Bids: bids, Asks: asks}, nil
}

// GetAllTrades returns the full trade history, newest last.
func (e *Engine) GetAllTrades() ([]*domain.Trade, error) {
	trades, err := e.tradeStore.LoadAll()
	if err != nil {
		return nil, ioErr(err, "load all trades")
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })
	return trades, nil
}

// GetUserTrades returns every trade involving userID as buyer or seller.
func (e *Engine) GetUserTrades(userID string) ([]*domain.Trade, error) {
	trades, err := e.tradeStore.LoadForUser(userID)
	if err != nil {
		return nil, ioErr(err, "load trades for %s", userID)
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })
	return trades, nil
}

// GetUserActiveOrders returns every order still resting or partially
// filled for userID.
func (e *Engine) GetUserActiveOrders(userID string) ([]*domain.Order, error) {
	orders, err := e.orderStore.LoadForUser(userID)
	if err != nil {
		return nil, ioErr(err, "load orders for %s", userID)
	}
	active := orders[:0]
	for _, o := range orders {
		if o.Active() {
			active = append(active, o)
		}
	}
	return active, nil
}
