package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brightledger/matchengine/cmd/engineserver/models"
)

// HealthHandler reports liveness. It deliberately doesn't touch the
// engine: a healthy process with a wedged engine should still answer.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(models.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
	})
}
