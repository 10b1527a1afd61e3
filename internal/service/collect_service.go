// Package service orchestrates the ingestion pipeline: durably store the
// event, then attempt best-effort delivery to its persistor.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/logcourier/logcourier/internal/dlq"
	"github.com/logcourier/logcourier/internal/logging"
	"github.com/logcourier/logcourier/internal/metrics"
	"github.com/logcourier/logcourier/internal/models"
	"github.com/logcourier/logcourier/internal/repository"
	"github.com/logcourier/logcourier/internal/router"
)

// CollectService composes the event store and the router per incoming event.
type CollectService struct {
	repo   repository.Repository
	router router.Router
	dlq    dlq.Writer // nil when the DLQ is disabled
}

// NewCollectService wires the pipeline. dlqWriter may be nil.
func NewCollectService(repo repository.Repository, r router.Router, dlqWriter dlq.Writer) *CollectService {
	return &CollectService{
		repo:   repo,
		router: r,
		dlq:    dlqWriter,
	}
}

// Collect stores one event and then routes it. A storage failure aborts the
// request before any routing attempt: forwarding an event that was never
// durably recorded would be a silent-loss risk, so the store is the
// gatekeeper. Routing failure is recovered locally and reported in the
// response; the record is committed either way.
func (s *CollectService) Collect(ctx context.Context, event *models.Event) (*models.CollectResponse, error) {
	start := time.Now()
	err := s.repo.Append(ctx, event)
	metrics.StorageDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StorageErrors.Inc()
		metrics.EventsTotal.WithLabelValues("storage_error").Inc()
		return nil, err
	}

	delivered, detail := s.router.Route(ctx, event)
	if delivered {
		metrics.EventsTotal.WithLabelValues("ok").Inc()
	} else {
		metrics.EventsTotal.WithLabelValues("routing_failed").Inc()
		slog.WarnContext(ctx, "routing failed",
			logging.EventID(event.ID),
			logging.EventType(event.Type),
			slog.String("detail", detail),
		)
		s.captureFailure(ctx, event, detail)
	}

	return &models.CollectResponse{
		Stored: true,
		Routed: delivered,
		Info:   detail,
	}, nil
}

// captureFailure best-effort records a failed routing in the DLQ. DLQ errors
// are logged and swallowed: the event is already stored and the response
// must not change.
func (s *CollectService) captureFailure(ctx context.Context, event *models.Event, detail string) {
	if s.dlq == nil {
		return
	}

	reason := "delivery_failed"
	if detail == router.UnknownTypeDetail {
		reason = "unknown_type"
	}

	if err := s.dlq.Write(ctx, event, reason, detail); err != nil {
		slog.ErrorContext(ctx, "dlq write failed",
			logging.EventID(event.ID),
			logging.Error(err),
		)
	}
}

// Analyze returns per-type record counts from the store.
func (s *CollectService) Analyze(ctx context.Context) (map[string]int64, error) {
	return s.repo.AggregateByType(ctx)
}

// Logs returns up to limit recent records, newest first, optionally
// restricted to timestamps at or after since.
func (s *CollectService) Logs(ctx context.Context, limit int, since *time.Time) ([]*models.StoredLog, error) {
	return s.repo.QueryRecent(ctx, limit, since)
}

// Ready reports whether the store is reachable.
func (s *CollectService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
