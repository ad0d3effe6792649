package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade records one match between a buy and a sell order. Trades are
// created atomically during matching and are never mutated or deleted.
type Trade struct {
	ID          uint64
	BuyOrderID  uint64
	SellOrderID uint64
	BuyUserID   string
	SellUserID  string
	Symbol      string
	Price       decimal.Decimal
	Quantity    int32
	Timestamp   time.Time
}

// Clone returns a value copy.
func (t *Trade) Clone() *Trade {
	cp := *t
	return &cp
}
