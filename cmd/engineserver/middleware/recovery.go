package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/brightledger/matchengine/cmd/engineserver/models"
	"github.com/brightledger/matchengine/internal/applog"
)

// Recovery recovers from a panic in a handler and reports it as a 500
// instead of crashing the process, logging the stack trace.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				applog.Error("panic recovered", applog.Fields{
					"error":      fmt.Sprintf("%v", err),
					"method":     r.Method,
					"path":       r.URL.Path,
					"stacktrace": string(debug.Stack()),
				})

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(models.BaseResponse{
					Success:   false,
					Timestamp: time.Now().UTC(),
					Message:   "internal server error",
					Error:     &models.APIError{Code: models.ErrInternalError, Message: "an unexpected error occurred"},
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
