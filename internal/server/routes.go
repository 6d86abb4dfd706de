// Package server wires HTTP handlers into a ServeMux and applies the CORS
// middleware for the room API.
package server

import (
	"net/http"

	"github.com/rs/cors"
)

// SetupRoutes configures all application routes and returns the handler to
// serve: health check, the two WebSocket endpoints, the room API, and
// Prometheus metrics. The room API is wrapped in CORS middleware built from
// the configured origin allowlist.
func SetupRoutes(h *Handlers) http.Handler {
	cfg := currentConfig()

	mux := http.NewServeMux()
	mux.HandleFunc("/", h.Health)
	mux.HandleFunc("/ws", h.Game)
	mux.HandleFunc("/ws/join", h.Join)
	mux.HandleFunc("/api/rooms", h.CreateRoom)
	mux.HandleFunc("/api/rooms/join", h.JoinRoom)
	mux.Handle("/metrics", MetricsHandler())

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}
