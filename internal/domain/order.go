// Package domain holds the value types shared by the book, the engine, and
// the storage layer: Order, Trade, User and the small enums that describe
// them. None of these types know how to persist themselves — that is the
// storage layer's job.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is which side of the book an order rests on.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderStatus tracks an order through its lifecycle. Once Filled or
// Cancelled it is terminal.
type OrderStatus uint8

const (
	StatusActive OrderStatus = iota
	StatusPartial
	StatusFilled
	StatusCancelled
)

func (s OrderStatus) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusPartial:
		return "PARTIAL"
	case StatusFilled:
		return "FILLED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the status can never change again.
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusCancelled
}

// Order is a limit intent to transact on one instrument. OrderID is engine
// allocated and monotonic; it never changes. RemainingQty and Status mutate
// on every fill and on cancel but the record is never deleted.
type Order struct {
	ID           uint64
	UserID       string
	Symbol       string
	Side         Side
	Price        decimal.Decimal
	OriginalQty  int32
	RemainingQty int32
	Status       OrderStatus
	Timestamp    time.Time
}

// Active reports whether the order still has resting liquidity.
func (o *Order) Active() bool {
	return o.Status == StatusActive || o.Status == StatusPartial
}

// ApplyFill reduces RemainingQty by qty and recomputes Status. qty must be
// <= RemainingQty; callers are responsible for that invariant.
func (o *Order) ApplyFill(qty int32) {
	o.RemainingQty -= qty
	if o.RemainingQty == 0 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartial
	}
}

// Clone returns a value copy safe to hand to a caller without sharing the
// engine's mutable state.
func (o *Order) Clone() *Order {
	cp := *o
	return &cp
}
