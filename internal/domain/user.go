package domain

import "github.com/shopspring/decimal"

// User is account state: cash, share holdings per symbol, and the set of
// order ids currently resting or partially filled. Cash and holdings must
// never go negative.
type User struct {
	ID             string
	CashBalance    decimal.Decimal
	Holdings       map[string]int32
	ActiveOrderIDs map[uint64]struct{}
}

// NewUser creates a user with the given starting cash and no holdings.
func NewUser(id string, initialCash decimal.Decimal) *User {
	return &User{
		ID:             id,
		CashBalance:    initialCash,
		Holdings:       make(map[string]int32),
		ActiveOrderIDs: make(map[uint64]struct{}),
	}
}

// Holding returns the quantity held of symbol (0 if absent).
func (u *User) Holding(symbol string) int32 {
	return u.Holdings[symbol]
}

// AddHolding credits qty shares of symbol.
func (u *User) AddHolding(symbol string, qty int32) {
	if qty == 0 {
		return
	}
	u.Holdings[symbol] += qty
}

// DeductHolding debits qty shares of symbol, failing if insufficient.
func (u *User) DeductHolding(symbol string, qty int32) bool {
	if u.Holdings[symbol] < qty {
		return false
	}
	u.Holdings[symbol] -= qty
	if u.Holdings[symbol] == 0 {
		delete(u.Holdings, symbol)
	}
	return true
}

// DeductCash debits amount from cash, failing if insufficient.
func (u *User) DeductCash(amount decimal.Decimal) bool {
	if u.CashBalance.LessThan(amount) {
		return false
	}
	u.CashBalance = u.CashBalance.Sub(amount)
	return true
}

// AddCash credits amount to cash.
func (u *User) AddCash(amount decimal.Decimal) {
	u.CashBalance = u.CashBalance.Add(amount)
}

// MarkActive registers orderID as active/partial.
func (u *User) MarkActive(orderID uint64) {
	u.ActiveOrderIDs[orderID] = struct{}{}
}

// ClearActive removes orderID from the active set (filled or cancelled).
func (u *User) ClearActive(orderID uint64) {
	delete(u.ActiveOrderIDs, orderID)
}

// Clone returns a deep copy so callers can't mutate engine state behind the
// user lock's back.
func (u *User) Clone() *User {
	cp := &User{
		ID:             u.ID,
		CashBalance:    u.CashBalance,
		Holdings:       make(map[string]int32, len(u.Holdings)),
		ActiveOrderIDs: make(map[uint64]struct{}, len(u.ActiveOrderIDs)),
	}
	for k, v := range u.Holdings {
		cp.Holdings[k] = v
	}
	for k := range u.ActiveOrderIDs {
		cp.ActiveOrderIDs[k] = struct{}{}
	}
	return cp
}
