package models

import "strings"

// CreateUserRequest creates a new account with starting cash.
type CreateUserRequest struct {
	UserID      string  `json:"user_id"`
	InitialCash float64 `json:"initial_cash"`
}

func (r *CreateUserRequest) Validate() *HTTPError {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrBadRequest("user_id cannot be empty", map[string]interface{}{"field": "user_id"})
	}
	if r.InitialCash < 0 {
		return ErrBadRequest("initial_cash cannot be negative", map[string]interface{}{"field": "initial_cash"})
	}
	return nil
}

// AddSymbolRequest lists a new instrument. RequesterID must match the
// configured administrator id.
type AddSymbolRequest struct {
	Symbol      string `json:"symbol"`
	RequesterID string `json:"requester_id"`
}

func (r *AddSymbolRequest) Validate() *HTTPError {
	if strings.TrimSpace(r.Symbol) == "" {
		return ErrBadRequest("symbol cannot be empty", map[string]interface{}{"field": "symbol"})
	}
	if strings.TrimSpace(r.RequesterID) == "" {
		return ErrBadRequest("requester_id cannot be empty", map[string]interface{}{"field": "requester_id"})
	}
	return nil
}

// PlaceOrderRequest submits a new limit order.
type PlaceOrderRequest struct {
	UserID   string  `json:"user_id"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"` // "buy" | "sell"
	Price    float64 `json:"price"`
	Quantity int32   `json:"quantity"`
}

func (r *PlaceOrderRequest) Validate() *HTTPError {
	if strings.TrimSpace(r.UserID) == "" {
		return ErrBadRequest("user_id cannot be empty", map[string]interface{}{"field": "user_id"})
	}
	if strings.TrimSpace(r.Symbol) == "" {
		return ErrBadRequest("symbol cannot be empty", map[string]interface{}{"field": "symbol"})
	}
	side := strings.ToLower(strings.TrimSpace(r.Side))
	if side != "buy" && side != "sell" {
		return ErrBadRequest("side must be 'buy' or 'sell'", map[string]interface{}{"field": "side", "provided_value": r.Side})
	}
	if r.Quantity <= 0 {
		return ErrBadRequest("quantity must be positive", map[string]interface{}{"field": "quantity"})
	}
	if r.Price <= 0 {
		return ErrBadRequest("price must be positive", map[string]interface{}{"field": "price"})
	}
	return nil
}
