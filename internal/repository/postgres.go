package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/logcourier/logcourier/internal/models"
	"github.com/logcourier/logcourier/internal/normalizer"
)

const schemaDDL = `
	CREATE TABLE IF NOT EXISTS logs (
		id BIGSERIAL PRIMARY KEY,
		event_id INTEGER,
		type TEXT,
		level TEXT,
		message TEXT,
		timestamp TIMESTAMPTZ,
		meta JSONB
	)
`

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL repository. The pool connects
// lazily; reachability is established separately through WaitReady so that
// startup can retry while the database is still coming up.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// WaitReady pings the database up to maxAttempts times, sleeping interval
// between attempts. It returns an error wrapping ErrDependencyUnavailable
// once the attempts are exhausted.
func (r *PostgresRepository) WaitReady(ctx context.Context, maxAttempts int, interval time.Duration) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := r.pool.Ping(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		slog.Info("waiting for postgres",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", maxAttempts),
			slog.String("error", lastErr.Error()),
		)

		if attempt == maxAttempts {
			break
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrDependencyUnavailable, ctx.Err())
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrDependencyUnavailable, maxAttempts, lastErr)
}

// EnsureSchema creates the logs table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Append stores one event. The timestamp is normalized to UTC (falling back
// to ingestion time) and meta is stored as structured JSONB, never flattened.
// One statement, one implicit transaction; the caller does not retry.
func (r *PostgresRepository) Append(ctx context.Context, event *models.Event) error {
	ts := normalizer.Normalize(event.Timestamp)

	meta := event.Meta
	if meta == nil {
		meta = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize meta: %w", err)
	}

	query := `
		INSERT INTO logs (event_id, type, level, message, timestamp, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.pool.Exec(ctx, query,
		event.ID, event.Type, event.Level, event.Message, ts, metaJSON,
	); err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}

	return nil
}

// QueryRecent returns up to limit records in descending timestamp order,
// optionally restricted to timestamp >= since. No upper bound is enforced
// on limit beyond the caller-supplied value.
func (r *PostgresRepository) QueryRecent(ctx context.Context, limit int, since *time.Time) ([]*models.StoredLog, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	query := `
		SELECT event_id, type, level, message, timestamp, meta
		FROM logs
	`
	args := []interface{}{}
	if since != nil {
		query += " WHERE timestamp >= $1"
		args = append(args, *since)
	}
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.StoredLog{}
	for rows.Next() {
		l := &models.StoredLog{}
		if err := rows.Scan(&l.ID, &l.Type, &l.Level, &l.Message, &l.Timestamp, &l.Meta); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		l.Timestamp = l.Timestamp.UTC()
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return logs, nil
}

// AggregateByType counts stored records per type.
func (r *PostgresRepository) AggregateByType(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, "SELECT type, COUNT(*) FROM logs GROUP BY type")
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate logs: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[eventType] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return counts, nil
}

// Ping reports whether the database currently answers.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
