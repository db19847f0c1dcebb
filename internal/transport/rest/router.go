package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"codeshare/internal/runner"
	"codeshare/internal/store"
	"codeshare/internal/transport/rest/handler"
	"codeshare/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	Store    *store.Store
	Hub      *ws.Hub
	Executor runner.Executor
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	sessionHandler := handler.NewSessionHandler(c.Store, c.Executor)
	wsHandler := ws.NewHandler(c.Hub)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// The stats route must precede the {id} route so "stats" is not
	// matched as a session id.
	r.HandleFunc("/sessions", sessionHandler.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/sessions/stats", sessionHandler.Stats).Methods("GET", "OPTIONS")
	r.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods("GET", "OPTIONS")
	r.HandleFunc("/sessions/{id}/execute", sessionHandler.Execute).Methods("POST", "OPTIONS")

	// Real-time event channel
	r.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
