package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brightledger/matchengine/cmd/engineserver/models"
	"github.com/brightledger/matchengine/internal/applog"
	"github.com/brightledger/matchengine/internal/domain"
	"github.com/brightledger/matchengine/internal/engine"
)

// EngineHolder wraps the engine for dependency injection into handlers.
type EngineHolder struct {
	Engine *engine.Engine
}

// NewEngineHolder wraps eng for handler dependency injection.
func NewEngineHolder(eng *engine.Engine) *EngineHolder {
	return &EngineHolder{Engine: eng}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, httpErr *models.HTTPError) {
	applog.Warn("request failed", applog.Fields{"error_code": httpErr.Error.Code, "status": httpErr.StatusCode})
	writeJSON(w, httpErr.StatusCode, models.BaseResponse{
		Success:   false,
		Timestamp: time.Now().UTC(),
		Message:   httpErr.Error.Message,
		Error:     &httpErr.Error,
	})
}

// writeEngineError translates an engine.Error into the matching HTTP
// status/code; any other error is reported as internal.
func writeEngineError(w http.ResponseWriter, err error) {
	if engErr, ok := err.(*engine.Error); ok {
		writeError(w, models.FromEngineKind(string(engErr.Kind), engErr.Message))
		return
	}
	writeError(w, models.ErrInternal(err.Error()))
}

func convertSide(s string) (domain.Side, bool) {
	switch s {
	case "buy", "BUY", "Buy":
		return domain.Buy, true
	case "sell", "SELL", "Sell":
		return domain.Sell, true
	default:
		return domain.Buy, false
	}
}

func orderDTO(o *domain.Order) models.OrderDTO {
	price, _ := o.Price.Float64()
	return models.OrderDTO{
		OrderID: o.ID, UserID: o.UserID, Symbol: o.Symbol, Side: o.Side.String(),
		Price: price, OriginalQty: o.OriginalQty, RemainingQty: o.RemainingQty,
		Status: o.Status.String(), Timestamp: o.Timestamp,
	}
}

func tradeDTO(t *domain.Trade) models.TradeDTO {
	price, _ := t.Price.Float64()
	return models.TradeDTO{
		TradeID: t.ID, BuyOrderID: t.BuyOrderID, SellOrderID: t.SellOrderID,
		BuyUserID: t.BuyUserID, SellUserID: t.SellUserID, Symbol: t.Symbol,
		Price: price, Quantity: t.Quantity, Timestamp: t.Timestamp,
	}
}
