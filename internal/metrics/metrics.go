package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event ingestion metrics
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_events_total",
			Help: "Total number of events received on /collect",
		},
		[]string{"status"},
	)

	// Storage metrics
	StorageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collector_storage_duration_seconds",
			Help:    "Duration of log append operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StorageErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_storage_errors_total",
			Help: "Total number of storage errors",
		},
	)

	// Routing metrics
	RoutingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_routing_total",
			Help: "Total number of routing attempts by event type and outcome",
		},
		[]string{"type", "outcome"},
	)

	RoutingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collector_routing_duration_seconds",
			Help:    "Duration of persistor deliveries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collector_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"key"},
	)

	// DLQ metrics
	DLQWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "collector_dlq_writes_total",
			Help: "Total number of events written to the dead letter queue",
		},
	)
)
