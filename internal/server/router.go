package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/logcourier/logcourier/internal/handlers"
	"github.com/logcourier/logcourier/internal/middleware"
)

// NewRouter constructs a ServeMux with the collector API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	// Ingestion and read surfaces
	mux.HandleFunc("/collect", h.Collect)
	mux.HandleFunc("/analyze", h.Analyze)
	mux.HandleFunc("/logs", h.Logs)

	// Health endpoints
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/readyz", h.Ready)

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
