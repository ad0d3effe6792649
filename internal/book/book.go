// Package book implements the price-indexed per-side structure for one
// instrument and the matching algorithm that runs against it. A book
// holds no order state of its own beyond the price/side it last saw for
// each resting id: the orders themselves always live in the order store.
// Price levels queue order ids, not disk offsets; each id is resolved
// through the order store's id index when the book needs the order.
package book

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightledger/matchengine/internal/domain"
	"github.com/brightledger/matchengine/internal/offset"
	"github.com/brightledger/matchengine/internal/storage"
)

type locateEntry struct {
	price decimal.Decimal
	side  domain.Side
}

// OrderBook owns the bid and ask sides of one symbol plus the mutex that
// serializes every operation against them ("book_lock" in the
// concurrency model). All matching I/O — loading and updating
// counterparty and incoming order records — happens while this lock is
// held; that is deliberate, not an oversight.
type OrderBook struct {
	mu     sync.Mutex
	Symbol string

	bids *side
	asks *side

	locate map[uint64]locateEntry

	orders storage.OrderStore
}

// New creates an empty book for symbol backed by orders for persistence.
func New(symbol string, orders storage.OrderStore) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids:   newSide(true),
		asks:   newSide(false),
		locate: make(map[uint64]locateEntry),
		orders: orders,
	}
}

func (b *OrderBook) sideFor(s domain.Side) *side {
	if s == domain.Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) oppositeOf(s domain.Side) *side {
	if s == domain.Buy {
		return b.asks
	}
	return b.bids
}

func (b *OrderBook) insertLocked(o *domain.Order) {
	b.sideFor(o.Side).getOrCreate(o.Price).pushBack(o.ID)
	b.locate[o.ID] = locateEntry{price: o.Price, side: o.Side}
}

func (b *OrderBook) removeLocked(orderID uint64) {
	loc, ok := b.locate[orderID]
	if !ok {
		return
	}
	s := b.sideFor(loc.side)
	lvl := s.get(loc.price)
	if lvl != nil {
		lvl.remove(orderID)
		if lvl.empty() {
			s.removeLevel(loc.price)
		}
	}
	delete(b.locate, orderID)
}

// crossTest returns the predicate that decides whether a resting price
// at cPrice can still trade against an incoming order of side s at
// price p.
func crossTest(s domain.Side, p decimal.Decimal) func(decimal.Decimal) bool {
	if s == domain.Buy {
		return func(cPrice decimal.Decimal) bool { return !cPrice.GreaterThan(p) }
	}
	return func(cPrice decimal.Decimal) bool { return !cPrice.LessThan(p) }
}

// Submit runs the matching algorithm for an already-persisted incoming
// order i at disk offset iOff, mutating i in place as it fills and
// persisting every order it touches (i and each counterparty) before
// returning. Any resting remainder of i is inserted into the book.
// Trades are returned without an id or buy/sell settlement applied —
// the caller allocates trade ids and performs cash/share settlement
// under its own locks.
func (b *OrderBook) Submit(i *domain.Order, iOff offset.Offset) ([]*domain.Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	opp := b.oppositeOf(i.Side)
	crossOK := crossTest(i.Side, i.Price)
	excluded := make(map[string]bool)

	var trades []*domain.Trade

	for i.RemainingQty > 0 {
		lvl := opp.bestTradeable(excluded, crossOK)
		if lvl == nil {
			break
		}
		frontID, ok := lvl.front()
		if !ok {
			// level shouldn't exist empty, but tolerate it defensively
			opp.removeLevel(lvl.price)
			continue
		}

		c, cOff, found, err := b.orders.LoadByID(frontID)
		if err != nil {
			return trades, fmt.Errorf("book: load counterparty %d: %w", frontID, err)
		}
		if !found {
			return trades, fmt.Errorf("book: counterparty %d referenced by book but missing from store", frontID)
		}

		if c.RemainingQty <= 0 {
			lvl.popFront()
			if lvl.empty() {
				opp.removeLevel(lvl.price)
			}
			delete(b.locate, frontID)
			continue
		}

		if c.UserID == i.UserID {
			excluded[lvl.price.String()] = true
			continue
		}

		q := min32(i.RemainingQty, c.RemainingQty)
		tradePrice := c.Price

		var trade *domain.Trade
		if i.Side == domain.Buy {
			trade = &domain.Trade{BuyOrderID: i.ID, SellOrderID: c.ID, BuyUserID: i.UserID, SellUserID: c.UserID, Symbol: b.Symbol, Price: tradePrice, Quantity: q}
		} else {
			trade = &domain.Trade{BuyOrderID: c.ID, SellOrderID: i.ID, BuyUserID: c.UserID, SellUserID: i.UserID, Symbol: b.Symbol, Price: tradePrice, Quantity: q}
		}
		trade.Timestamp = time.Now().UTC()
		trades = append(trades, trade)

		i.ApplyFill(q)
		c.ApplyFill(q)

		if err := b.orders.Update(c, cOff); err != nil {
			return trades, fmt.Errorf("book: persist counterparty %d: %w", c.ID, err)
		}
		if err := b.orders.Update(i, iOff); err != nil {
			return trades, fmt.Errorf("book: persist incoming %d: %w", i.ID, err)
		}

		lvl.popFront()
		if c.RemainingQty > 0 {
			// Partial fill of the resting order keeps it first in its
			// level: prepend rather than re-append to the back.
			lvl.queue.PushFront(c.ID)
			lvl.index[c.ID] = lvl.queue.Front()
		} else {
			delete(b.locate, c.ID)
		}
		if lvl.empty() {
			opp.removeLevel(lvl.price)
		}
	}

	if i.RemainingQty > 0 {
		b.insertLocked(i)
	}

	return trades, nil
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

// Cancel removes order from the book and marks it cancelled on disk. It
// returns the order as it stood immediately before cancellation (with
// its pre-cancel RemainingQty) so the caller can compute the refund.
func (b *OrderBook) Cancel(orderID uint64, userID string) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, off, found, err := b.orders.LoadByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("book: load order %d: %w", orderID, err)
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	if o.UserID != userID {
		return nil, ErrNotOwner
	}
	if o.Status.Terminal() {
		return nil, ErrOrderTerminal
	}

	snapshot := o.Clone()

	b.removeLocked(orderID)

	o.Status = domain.StatusCancelled
	if err := b.orders.Update(o, off); err != nil {
		return nil, fmt.Errorf("book: persist cancelled order %d: %w", orderID, err)
	}

	return snapshot, nil
}

// BestBid returns the order resting at the best bid, or nil if the book
// has no bids.
func (b *OrderBook) BestBid() (*domain.Order, error) {
	return b.bestOf(b.bids)
}

// BestAsk returns the order resting at the best ask, or nil if the book
// has no asks.
func (b *OrderBook) BestAsk() (*domain.Order, error) {
	return b.bestOf(b.asks)
}

func (b *OrderBook) bestOf(s *side) (*domain.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lvl := s.best()
	if lvl == nil {
		return nil, nil
	}
	id, ok := lvl.front()
	if !ok {
		return nil, nil
	}
	o, _, found, err := b.orders.LoadByID(id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("book: best order %d missing from store", id)
	}
	return o, nil
}

// Depth returns the number of distinct price levels on each side,
// mainly useful for reporting and tests.
func (b *OrderBook) Depth() (bidLevels, askLevels int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.len(), b.asks.len()
}

// PriceLevelSnapshot is a read-only view of one price level, used for
// reporting queries.
type PriceLevelSnapshot struct {
	Price      decimal.Decimal
	TotalQty   int32
	OrderCount int
}

// Snapshot returns every resting price level on both sides, best first.
func (b *OrderBook) Snapshot() (bids, asks []PriceLevelSnapshot, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bids, err = b.snapshotSideLocked(b.bids)
	if err != nil {
		return nil, nil, err
	}
	asks, err = b.snapshotSideLocked(b.asks)
	if err != nil {
		return nil, nil, err
	}
	return bids, asks, nil
}

func (b *OrderBook) snapshotSideLocked(s *side) ([]PriceLevelSnapshot, error) {
	var out []PriceLevelSnapshot
	var loadErr error
	s.ascend(func(lvl *priceLevel) bool {
		var qty int32
		for e := lvl.queue.Front(); e != nil; e = e.Next() {
			o, _, found, err := b.orders.LoadByID(e.Value.(uint64))
			if err != nil {
				loadErr = err
				return false
			}
			if found {
				qty += o.RemainingQty
			}
		}
		out = append(out, PriceLevelSnapshot{Price: lvl.price, TotalQty: qty, OrderCount: lvl.len()})
		return true
	})
	return out, loadErr
}

// RebuildFromStorage repopulates the book from every order on disk for
// this symbol that is still active or partially filled. Insertion order
// is ascending timestamp then ascending order id, reproducing the FIFO
// order the book would have converged to live.
func (b *OrderBook) RebuildFromStorage() error {
	all, err := b.orders.LoadForSymbol(b.Symbol)
	if err != nil {
		return fmt.Errorf("book: load orders for %s: %w", b.Symbol, err)
	}

	var resting []*domain.Order
	for _, o := range all {
		if o.Active() && o.RemainingQty > 0 {
			resting = append(resting, o)
		}
	}
	sort.Slice(resting, func(i, j int) bool {
		if !resting[i].Timestamp.Equal(resting[j].Timestamp) {
			return resting[i].Timestamp.Before(resting[j].Timestamp)
		}
		return resting[i].ID < resting[j].ID
	})

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, o := range resting {
		b.insertLocked(o)
	}
	return nil
}
