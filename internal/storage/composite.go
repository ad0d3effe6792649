package storage

import (
	"github.com/brightledger/matchengine/internal/applog"
	"github.com/brightledger/matchengine/internal/domain"
	"github.com/brightledger/matchengine/internal/offset"
)

// OrderUserMirror is satisfied by the Redis mirror. Kept narrow so the
// storage package doesn't import go-redis directly; only the concrete
// caller (cmd/engineserver wiring) needs to know the real type.
type OrderUserMirror interface {
	SaveOrder(o *domain.Order) error
	SaveUser(u *domain.User) error
	Close() error
}

// TradeMirror is satisfied by the Postgres mirror.
type TradeMirror interface {
	SaveTrade(t *domain.Trade) error
	Close() error
}

// CompositeOrderStore writes through to a disk-backed primary and to zero
// or more best-effort mirrors. The primary is the only store ever read
// from: mirror failures are logged and swallowed so a Redis or Postgres
// outage never blocks order placement, matching, or recovery.
type CompositeOrderStore struct {
	primary OrderStore
	mirrors []OrderUserMirror
}

// NewCompositeOrderStore wraps primary with the given mirrors.
func NewCompositeOrderStore(primary OrderStore, mirrors ...OrderUserMirror) *CompositeOrderStore {
	return &CompositeOrderStore{primary: primary, mirrors: mirrors}
}

func (c *CompositeOrderStore) fanOut(o *domain.Order) {
	for _, m := range c.mirrors {
		if err := m.SaveOrder(o); err != nil {
			applog.Warn("composite order mirror write failed", applog.Fields{"order_id": o.ID, "error": err.Error()})
		}
	}
}

// Persist writes o to disk then mirrors it.
func (c *CompositeOrderStore) Persist(o *domain.Order) (offset.Offset, error) {
	off, err := c.primary.Persist(o)
	if err != nil {
		return off, err
	}
	c.fanOut(o)
	return off, nil
}

// Update overwrites o on disk then mirrors it.
func (c *CompositeOrderStore) Update(o *domain.Order, off offset.Offset) error {
	if err := c.primary.Update(o, off); err != nil {
		return err
	}
	c.fanOut(o)
	return nil
}

func (c *CompositeOrderStore) Load(off offset.Offset) (*domain.Order, error) { return c.primary.Load(off) }
func (c *CompositeOrderStore) LoadByID(id uint64) (*domain.Order, offset.Offset, bool, error) {
	return c.primary.LoadByID(id)
}
func (c *CompositeOrderStore) Exists(id uint64) bool { return c.primary.Exists(id) }
func (c *CompositeOrderStore) LoadForSymbol(symbol string) ([]*domain.Order, error) {
	return c.primary.LoadForSymbol(symbol)
}
func (c *CompositeOrderStore) LoadForUser(userID string) ([]*domain.Order, error) {
	return c.primary.LoadForUser(userID)
}
func (c *CompositeOrderStore) LoadAll() ([]*domain.Order, error) { return c.primary.LoadAll() }

// Close closes the primary and every mirror, returning the primary's
// error if any (mirror close errors are logged, not propagated).
func (c *CompositeOrderStore) Close() error {
	for _, m := range c.mirrors {
		if err := m.Close(); err != nil {
			applog.Warn("composite order mirror close failed", applog.Fields{"error": err.Error()})
		}
	}
	return c.primary.Close()
}

// CompositeUserStore mirrors users the same way CompositeOrderStore
// mirrors orders.
type CompositeUserStore struct {
	primary UserStore
	mirrors []OrderUserMirror
}

// NewCompositeUserStore wraps primary with the given mirrors.
func NewCompositeUserStore(primary UserStore, mirrors ...OrderUserMirror) *CompositeUserStore {
	return &CompositeUserStore{primary: primary, mirrors: mirrors}
}

func (c *CompositeUserStore) fanOut(u *domain.User) {
	for _, m := range c.mirrors {
		if err := m.SaveUser(u); err != nil {
			applog.Warn("composite user mirror write failed", applog.Fields{"user_id": u.ID, "error": err.Error()})
		}
	}
}

// Persist writes u to disk then mirrors it.
func (c *CompositeUserStore) Persist(u *domain.User) (offset.Offset, error) {
	off, err := c.primary.Persist(u)
	if err != nil {
		return off, err
	}
	c.fanOut(u)
	return off, nil
}

// Update overwrites u on disk then mirrors it.
func (c *CompositeUserStore) Update(u *domain.User, off offset.Offset) error {
	if err := c.primary.Update(u, off); err != nil {
		return err
	}
	c.fanOut(u)
	return nil
}

func (c *CompositeUserStore) Load(off offset.Offset) (*domain.User, error) { return c.primary.Load(off) }
func (c *CompositeUserStore) LoadByID(id string) (*domain.User, offset.Offset, bool, error) {
	return c.primary.LoadByID(id)
}
func (c *CompositeUserStore) Exists(id string) bool          { return c.primary.Exists(id) }
func (c *CompositeUserStore) LoadAll() ([]*domain.User, error) { return c.primary.LoadAll() }

// Close closes the primary and every mirror.
func (c *CompositeUserStore) Close() error {
	for _, m := range c.mirrors {
		if err := m.Close(); err != nil {
			applog.Warn("composite user mirror close failed", applog.Fields{"error": err.Error()})
		}
	}
	return c.primary.Close()
}

// CompositeTradeStore writes executed trades to disk and mirrors them
// into the Postgres blotter.
type CompositeTradeStore struct {
	primary TradeStore
	mirrors []TradeMirror
}

// NewCompositeTradeStore wraps primary with the given mirrors.
func NewCompositeTradeStore(primary TradeStore, mirrors ...TradeMirror) *CompositeTradeStore {
	return &CompositeTradeStore{primary: primary, mirrors: mirrors}
}

// Persist writes t to disk then mirrors it.
func (c *CompositeTradeStore) Persist(t *domain.Trade) (offset.Offset, error) {
	off, err := c.primary.Persist(t)
	if err != nil {
		return off, err
	}
	for _, m := range c.mirrors {
		if err := m.SaveTrade(t); err != nil {
			applog.Warn("composite trade mirror write failed", applog.Fields{"trade_id": t.ID, "error": err.Error()})
		}
	}
	return off, nil
}

func (c *CompositeTradeStore) Load(off offset.Offset) (*domain.Trade, error) { return c.primary.Load(off) }
func (c *CompositeTradeStore) LoadByID(id uint64) (*domain.Trade, bool, error) {
	return c.primary.LoadByID(id)
}
func (c *CompositeTradeStore) LoadForUser(userID string) ([]*domain.Trade, error) {
	return c.primary.LoadForUser(userID)
}
func (c *CompositeTradeStore) LoadAll() ([]*domain.Trade, error) { return c.primary.LoadAll() }

// Close closes the primary and every mirror.
func (c *CompositeTradeStore) Close() error {
	for _, m := range c.mirrors {
		if err := m.Close(); err != nil {
			applog.Warn("composite trade mirror close failed", applog.Fields{"error": err.Error()})
		}
	}
	return c.primary.Close()
}
