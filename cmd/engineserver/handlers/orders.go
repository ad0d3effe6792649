package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightledger/matchengine/cmd/engineserver/models"
)

// PlaceOrderHandler handles POST /api/v1/orders.
func (eh *EngineHolder) PlaceOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON body", map[string]interface{}{"error": err.Error()}))
		return
	}
	if httpErr := req.Validate(); httpErr != nil {
		writeError(w, httpErr)
		return
	}
	side, ok := convertSide(req.Side)
	if !ok {
		writeError(w, models.ErrBadRequest("side must be 'buy' or 'sell'", map[string]interface{}{"provided_value": req.Side}))
		return
	}

	order, trades, err := eh.Engine.PlaceOrder(req.UserID, req.Symbol, side, decimal.NewFromFloat(req.Price), req.Quantity)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtoTrades := make([]models.TradeDTO, len(trades))
	for i, t := range trades {
		dtoTrades[i] = tradeDTO(t)
	}
	od := orderDTO(order)
	writeJSON(w, http.StatusCreated, models.PlaceOrderResponse{
		BaseResponse: models.BaseResponse{Success: true, Timestamp: time.Now().UTC()},
		Order:        &od,
		Trades:       dtoTrades,
	})
}

func parseOrderID(path, prefix string) (uint64, bool) {
	raw := strings.TrimPrefix(path, prefix)
	id, err := strconv.ParseUint(raw, 10, 64)
	return id, err == nil
}

// GetOrderHandler handles GET /api/v1/orders/{id}.
func (eh *EngineHolder) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(r.URL.Path, "/api/v1/orders/")
	if !ok {
		writeError(w, models.ErrBadRequest("invalid order id", nil))
		return
	}

	order, err := eh.Engine.GetOrder(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	od := orderDTO(order)
	writeJSON(w, http.StatusOK, models.GetOrderResponse{
		BaseResponse: models.BaseResponse{Success: true, Timestamp: time.Now().UTC()},
		Order:        &od,
	})
}

// CancelOrderHandler handles DELETE /api/v1/orders/{id}?user_id=...
func (eh *EngineHolder) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(r.URL.Path, "/api/v1/orders/")
	if !ok {
		writeError(w, models.ErrBadRequest("invalid order id", nil))
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, models.ErrBadRequest("user_id query parameter is required", nil))
		return
	}

	if err := eh.Engine.CancelOrder(id, userID); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.BaseResponse{Success: true, Timestamp: time.Now().UTC(), Message: "order cancelled"})
}

// GetUserActiveOrdersHandler handles GET /api/v1/users/{id}/orders.
func (eh *EngineHolder) GetUserActiveOrdersHandler(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/users/"), "/orders")
	if userID == "" {
		writeError(w, models.ErrBadRequest("user id is required", nil))
		return
	}

	orders, err := eh.Engine.GetUserActiveOrders(userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	dtos := make([]models.OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = orderDTO(o)
	}
	writeJSON(w, http.StatusOK, models.GetOrdersResponse{
		BaseResponse: models.BaseResponse{Success: true, Timestamp: time.Now().UTC()},
		Orders:       dtos, Count: len(dtos),
	})
}
