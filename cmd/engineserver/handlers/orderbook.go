package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/brightledger/matchengine/cmd/engineserver/models"
	"github.com/brightledger/matchengine/internal/book"
)

func levelDTOs(levels []book.PriceLevelSnapshot) []models.PriceLevelDTO {
	out := make([]models.PriceLevelDTO, len(levels))
	for i, lvl := range levels {
		price, _ := lvl.Price.Float64()
		out[i] = models.PriceLevelDTO{Price: price, Quantity: lvl.TotalQty, OrderCount: lvl.OrderCount}
	}
	return out
}

// GetOrderBookHandler handles GET /api/v1/orderbook/{symbol}.
func (eh *EngineHolder) GetOrderBookHandler(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimPrefix(r.URL.Path, "/api/v1/orderbook/")
	if symbol == "" {
		writeError(w, models.ErrBadRequest("symbol is required", nil))
		return
	}

	snap, err := eh.Engine.GetOrderBook(symbol)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.OrderBookResponse{
		BaseResponse: models.BaseResponse{Success: true, Timestamp: time.Now().UTC()},
		Symbol:       snap.Symbol,
		Bids:         levelDTOs(snap.Bids),
		Asks:         levelDTOs(snap.Asks),
	})
}
