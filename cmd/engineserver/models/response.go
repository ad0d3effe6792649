package models

import "time"

// BaseResponse is embedded by every response body.
type BaseResponse struct {
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
	Error     *APIError `json:"error,omitempty"`
}

// TradeDTO is a trade in API responses.
type TradeDTO struct {
	TradeID     uint64    `json:"trade_id"`
	BuyOrderID  uint64    `json:"buy_order_id"`
	SellOrderID uint64    `json:"sell_order_id"`
	BuyUserID   string    `json:"buy_user_id"`
	SellUserID  string    `json:"sell_user_id"`
	Symbol      string    `json:"symbol"`
	Price       float64   `json:"price"`
	Quantity    int32     `json:"quantity"`
	Timestamp   time.Time `json:"timestamp"`
}

// OrderDTO is an order in API responses.
type OrderDTO struct {
	OrderID      uint64    `json:"order_id"`
	UserID       string    `json:"user_id"`
	Symbol       string    `json:"symbol"`
	Side         string    `json:"side"`
	Price        float64   `json:"price"`
	OriginalQty  int32     `json:"original_quantity"`
	RemainingQty int32     `json:"remaining_quantity"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// UserDTO is a user in API responses.
type UserDTO struct {
	UserID      string           `json:"user_id"`
	CashBalance float64          `json:"cash_balance"`
	Holdings    map[string]int32 `json:"holdings"`
}

// PlaceOrderResponse is returned by POST /orders.
type PlaceOrderResponse struct {
	BaseResponse
	Order  *OrderDTO  `json:"order,omitempty"`
	Trades []TradeDTO `json:"trades,omitempty"`
}

// GetOrderResponse is returned by GET /orders/{id}.
type GetOrderResponse struct {
	BaseResponse
	Order *OrderDTO `json:"order,omitempty"`
}

// GetOrdersResponse is returned by listing endpoints.
type GetOrdersResponse struct {
	BaseResponse
	Orders []OrderDTO `json:"orders"`
	Count  int        `json:"count"`
}

// GetTradesResponse is returned by trade history endpoints.
type GetTradesResponse struct {
	BaseResponse
	Trades []TradeDTO `json:"trades"`
	Count  int        `json:"count"`
}

// PriceLevelDTO is one level of a book snapshot.
type PriceLevelDTO struct {
	Price      float64 `json:"price"`
	Quantity   int32   `json:"quantity"`
	OrderCount int     `json:"order_count"`
}

// OrderBookResponse is the full book snapshot for a symbol.
type OrderBookResponse struct {
	BaseResponse
	Symbol string          `json:"symbol"`
	Bids   []PriceLevelDTO `json:"bids"`
	Asks   []PriceLevelDTO `json:"asks"`
}

// GetUserResponse is returned by GET /users/{id}.
type GetUserResponse struct {
	BaseResponse
	User *UserDTO `json:"user,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}
