package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/logcourier/logcourier/internal/httputil"
	"github.com/logcourier/logcourier/internal/logging"
	"github.com/logcourier/logcourier/internal/metrics"
	"github.com/logcourier/logcourier/internal/models"
	"github.com/logcourier/logcourier/internal/ratelimit"
	"github.com/logcourier/logcourier/internal/service"
)

const defaultLogsLimit = 50

type Handler struct {
	service     *service.CollectService
	rateLimiter ratelimit.RateLimiter
	logger      *logging.Logger
}

func NewHandler(svc *service.CollectService, limiter ratelimit.RateLimiter, logger *logging.Logger) *Handler {
	return &Handler{
		service:     svc,
		rateLimiter: limiter,
		logger:      logger,
	}
}

// Health handles GET /health. Constant-time liveness, no dependency checks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready handles GET /readyz by pinging the store.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Collect handles POST /collect: validate, store, route, respond. Routing
// failure never fails the request; a storage failure is a 500.
func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	allowed, err := h.rateLimiter.Allow(r.Context(), clientIP(r))
	if err != nil {
		// A broken limiter must not take ingestion down with it.
		h.logger.WarnContext(r.Context(), "rate limiter unavailable", logging.Error(err))
	} else if !allowed {
		httputil.WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	var event *models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil || event == nil {
		metrics.EventsTotal.WithLabelValues("invalid").Inc()
		httputil.WriteError(w, http.StatusBadRequest, "invalid")
		return
	}

	resp, err := h.service.Collect(r.Context(), event)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to store event",
			logging.EventID(event.ID),
			logging.EventType(event.Type),
			logging.Error(err),
		)
		httputil.WriteError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Analyze handles GET /analyze.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.Analyze(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to aggregate logs", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}

// Logs handles GET /logs?limit=N&since=ISO8601.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r.URL.Query().Get("limit"))

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		since = &t
	}

	logs, err := h.service.Logs(r.Context(), limit, since)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to query logs", logging.Error(err))
		httputil.WriteError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"logs": logs})
}

// parseLimit falls back to the default for missing, malformed or
// non-positive values.
func parseLimit(raw string) int {
	if raw == "" {
		return defaultLogsLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultLogsLimit
	}
	return n
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}
