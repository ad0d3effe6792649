package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/brightledger/matchengine/cmd/engineserver/models"
	"github.com/brightledger/matchengine/internal/domain"
)

// GetAllTradesHandler handles GET /api/v1/trades.
func (eh *EngineHolder) GetAllTradesHandler(w http.ResponseWriter, r *http.Request) {
	trades, err := eh.Engine.GetAllTrades()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeTrades(w, trades)
}

// GetUserTradesHandler handles GET /api/v1/users/{id}/trades.
func (eh *EngineHolder) GetUserTradesHandler(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/users/"), "/trades")
	if userID == "" {
		writeError(w, models.ErrBadRequest("user id is required", nil))
		return
	}

	trades, err := eh.Engine.GetUserTrades(userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeTrades(w, trades)
}

func writeTrades(w http.ResponseWriter, trades []*domain.Trade) {
	dtos := make([]models.TradeDTO, len(trades))
	for i, t := range trades {
		dtos[i] = tradeDTO(t)
	}
	writeJSON(w, http.StatusOK, models.GetTradesResponse{
		BaseResponse: models.BaseResponse{Success: true, Timestamp: time.Now().UTC()},
		Trades:       dtos, Count: len(dtos),
	})
}
