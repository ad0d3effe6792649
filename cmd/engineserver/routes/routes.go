// Package routes wires the HTTP surface: one mux, one middleware chain,
// and method dispatch inline in each handler registration the way the
// teacher's own router does it rather than pulling in a router library.
package routes

import (
	"net/http"
	"strings"

	"github.com/brightledger/matchengine/cmd/engineserver/handlers"
	"github.com/brightledger/matchengine/cmd/engineserver/middleware"
)

// SetupRoutes builds the full handler chain: mux wrapped by
// Recovery -> CORS -> Logging.
func SetupRoutes(eh *handlers.EngineHolder) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", handlers.HealthHandler)

	mux.HandleFunc("/api/v1/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			eh.CreateUserHandler(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/api/v1/users/", func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(path, "/orders"):
			eh.GetUserActiveOrdersHandler(w, r)
		case r.Method == http.MethodGet && strings.HasSuffix(path, "/trades"):
			eh.GetUserTradesHandler(w, r)
		case r.Method == http.MethodGet:
			eh.GetUserHandler(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/symbols", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			eh.AddSymbolHandler(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			eh.PlaceOrderHandler(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/api/v1/orders/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			eh.GetOrderHandler(w, r)
		case http.MethodDelete:
			eh.CancelOrderHandler(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/trades", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			eh.GetAllTradesHandler(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	mux.HandleFunc("/api/v1/orderbook/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			eh.GetOrderBookHandler(w, r)
			return
		}
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	var handler http.Handler = mux
	handler = middleware.Recovery(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(handler)
	return handler
}
