package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brightledger/matchengine/cmd/engineserver/models"
)

// CreateUserHandler handles POST /api/v1/users.
func (eh *EngineHolder) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, models.ErrBadRequest("invalid JSON body", map[string]interface{}{"error": err.Error()}))
		return
	}
	if httpErr := req.Validate(); httpErr != nil {
		writeError(w, httpErr)
		return
	}

	u, err := eh.Engine.CreateUser(req.UserID, decimal.NewFromFloat(req.InitialCash))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	cash, _ := u.CashBalance.Float64()
	writeJSON(w, http.StatusCreated, models.GetUserResponse{
		BaseResponse: models.BaseResponse{Success: true, Timestamp: time.Now().UTC()},
		User:         &models.UserDTO{UserID: u.ID, CashBalance: cash, Holdings: u.Holdings},
	})
}

// GetUserHandler handles GET /api/v1/users/{id}.
func (eh *EngineHolder) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimPrefix(r.URL.Path, "/api/v1/users/")
	if userID == "" {
		writeError(w, models.ErrBadRequest("user id is required", nil))
		return
	}

	u, err := eh.Engine.GetUser(userID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	cash, _ := u.CashBalance.Float64()
	writeJSON(w, http.StatusOK, models.GetUserResponse{
		BaseResponse: models.BaseResponse{Success: true, Timestamp: time.Now().UTC()},
		User:         &models.UserDTO{UserID: u.ID, CashBalance: cash, Holdings: u.Holdings},
	})
}
