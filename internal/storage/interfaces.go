// Package storage is the disk-first persistence layer: typed record
// stores for orders, users, trades, symbols and metadata, each a thin
// wrapper over diskstore.Store with an in-memory index sidecar that is
// always safe to discard and rebuild by scanning the data file.
package storage

import (
	"github.com/brightledger/matchengine/internal/domain"
	"github.com/brightledger/matchengine/internal/offset"
	"github.com/brightledger/matchengine/internal/records"
)

// OrderStore persists Order records and indexes them by id, symbol and
// user.
type OrderStore interface {
	Persist(o *domain.Order) (offset.Offset, error)
	Load(off offset.Offset) (*domain.Order, error)
	LoadByID(id uint64) (*domain.Order, offset.Offset, bool, error)
	Exists(id uint64) bool
	Update(o *domain.Order, off offset.Offset) error
	LoadForSymbol(symbol string) ([]*domain.Order, error)
	LoadForUser(userID string) ([]*domain.Order, error)
	LoadAll() ([]*domain.Order, error)
	Close() error
}

// UserStore persists User records and indexes them by user id.
type UserStore interface {
	Persist(u *domain.User) (offset.Offset, error)
	Load(off offset.Offset) (*domain.User, error)
	LoadByID(id string) (*domain.User, offset.Offset, bool, error)
	Exists(id string) bool
	Update(u *domain.User, off offset.Offset) error
	LoadAll() ([]*domain.User, error)
	Close() error
}

// TradeStore persists Trade records, append-only, indexed by id.
type TradeStore interface {
	Persist(t *domain.Trade) (offset.Offset, error)
	Load(off offset.Offset) (*domain.Trade, error)
	LoadByID(id uint64) (*domain.Trade, bool, error)
	LoadForUser(userID string) ([]*domain.Trade, error)
	LoadAll() ([]*domain.Trade, error)
	Close() error
}

// SymbolStore persists the set of listed instruments.
type SymbolStore interface {
	Add(symbol string) error
	Exists(symbol string) bool
	LoadAll() ([]string, error)
	Close() error
}

// MetadataStore persists the single Metadata record, always overwritten
// at offset 0.
type MetadataStore interface {
	Load() (*records.Metadata, error)
	Save(m *records.Metadata) error
	Close() error
}
