package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brightledger/matchengine/cmd/engineserver/models"
)

// AddSymbolHandler handles POST /api/v1/symbols. Authorization is
// checked inside the engine against the configured administrator id.
func (eh *EngineHolder) AddSymbolHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddSymbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON body", map[string]interface{}{"error": err.Error()}))
		return
	}
	if httpErr := req.Validate(); httpErr != nil {
		writeError(w, httpErr)
		return
	}

	if err := eh.Engine.AddSymbol(req.Symbol, req.RequesterID); err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.BaseResponse{
		Success: true, Timestamp: time.Now().UTC(), Message: "symbol listed",
	})
}
