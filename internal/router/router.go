// Package router forwards stored events to their type-specific downstream
// persistor services over HTTP.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/logcourier/logcourier/internal/config"
	"github.com/logcourier/logcourier/internal/metrics"
	"github.com/logcourier/logcourier/internal/models"
)

// UnknownTypeDetail is the diagnostic returned for events whose type has no
// persistor assignment.
const UnknownTypeDetail = "unknown type"

// Router delivers events to persistors. Implementations are best effort:
// a failed delivery is reported, never retried.
type Router interface {
	Route(ctx context.Context, event *models.Event) (delivered bool, detail string)
}

// PersistorRouter routes by event type through a static lookup table built
// from configuration. Delivery is one synchronous POST with a hard timeout;
// success is strictly HTTP 200.
type PersistorRouter struct {
	targets map[string]string
	client  *http.Client
}

// New builds a PersistorRouter from the persistor configuration. Each known
// event type maps to http://<host>:<port>/persist.
func New(cfg config.PersistorsConfig) *PersistorRouter {
	hosts := map[string]string{
		models.TypeAuth:        cfg.Auth,
		models.TypePayment:     cfg.Payment,
		models.TypeSystem:      cfg.System,
		models.TypeApplication: cfg.Application,
	}

	targets := make(map[string]string, len(hosts))
	for eventType, host := range hosts {
		if host == "" {
			continue
		}
		targets[eventType] = fmt.Sprintf("http://%s:%d/persist", host, cfg.Port)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &PersistorRouter{
		targets: targets,
		client:  &http.Client{Timeout: timeout},
	}
}

// Route looks up the event's persistor and performs one delivery attempt.
// An unknown type short-circuits without network I/O. Any non-200 response,
// timeout or transport failure yields delivered=false with diagnostic text;
// the error never escalates to the caller.
func (r *PersistorRouter) Route(ctx context.Context, event *models.Event) (bool, string) {
	url, ok := r.targets[event.Type]
	if !ok {
		metrics.RoutingTotal.WithLabelValues(event.Type, "unknown_type").Inc()
		return false, UnknownTypeDetail
	}

	body, err := json.Marshal(event)
	if err != nil {
		metrics.RoutingTotal.WithLabelValues(event.Type, "error").Inc()
		return false, err.Error()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		metrics.RoutingTotal.WithLabelValues(event.Type, "error").Inc()
		return false, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.client.Do(req)
	metrics.RoutingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RoutingTotal.WithLabelValues(event.Type, "error").Inc()
		return false, err.Error()
	}
	defer resp.Body.Close()

	// The persistor's response body is the diagnostic either way.
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(respBody))

	if resp.StatusCode != http.StatusOK {
		metrics.RoutingTotal.WithLabelValues(event.Type, "rejected").Inc()
		if detail == "" {
			detail = resp.Status
		}
		return false, detail
	}

	metrics.RoutingTotal.WithLabelValues(event.Type, "delivered").Inc()
	return true, detail
}
