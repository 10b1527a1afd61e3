package repository

import (
	"context"
	"errors"
	"time"

	"github.com/logcourier/logcourier/internal/models"
)

// ErrDependencyUnavailable is returned by WaitReady when the storage backend
// stayed unreachable for the whole bounded retry window. The caller treats it
// as a fatal startup condition.
var ErrDependencyUnavailable = errors.New("storage backend unavailable")

// Repository defines the interface for the durable log store.
type Repository interface {
	// WaitReady blocks until the backend answers a ping, retrying up to
	// maxAttempts times with interval between attempts.
	WaitReady(ctx context.Context, maxAttempts int, interval time.Duration) error

	// EnsureSchema creates the logs table if absent. Safe on every startup.
	EnsureSchema(ctx context.Context) error

	// Append normalizes and stores one event as a new log record.
	Append(ctx context.Context, event *models.Event) error

	// QueryRecent returns up to limit records ordered by timestamp
	// descending, restricted to timestamp >= since when since is non-nil.
	QueryRecent(ctx context.Context, limit int, since *time.Time) ([]*models.StoredLog, error)

	// AggregateByType counts stored records per event type, covering every
	// type seen historically.
	AggregateByType(ctx context.Context) (map[string]int64, error)

	// Ping reports whether the backend is currently reachable.
	Ping(ctx context.Context) error

	Close() error
}
