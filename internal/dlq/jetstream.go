// Package dlq records events whose persistor delivery failed. The queue is a
// diagnostic capture, not a redelivery mechanism: the collector's routing
// contract stays at-most-once.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/logcourier/logcourier/internal/metrics"
	"github.com/logcourier/logcourier/internal/models"
)

const (
	streamName    = "COLLECTOR_DLQ"
	subjectPrefix = "collector.dlq"
)

// FailedEvent is the DLQ record for one failed routing attempt.
type FailedEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Event     *models.Event `json:"event"`
	Reason    string        `json:"reason"`
	Detail    string        `json:"detail"`
}

// Writer captures failed routings.
type Writer interface {
	Write(ctx context.Context, event *models.Event, reason, detail string) error
	Close()
}

// JetStreamQueue writes failed events to NATS JetStream. Safe for use across
// multiple collector instances.
type JetStreamQueue struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	stream  jetstream.Stream
	written uint64
}

// NewJetStreamQueue connects to NATS and creates or updates the DLQ stream.
func NewJetStreamQueue(ctx context.Context, natsURL string) (*JetStreamQueue, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("logcourier-collector"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ".>"},
		MaxAge:    7 * 24 * time.Hour,
		MaxBytes:  1024 * 1024 * 1024,
		Retention: jetstream.LimitsPolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create dlq stream: %w", err)
	}

	slog.Info("dlq stream ready", slog.String("stream", streamName))

	return &JetStreamQueue{conn: conn, js: js, stream: stream}, nil
}

// Write publishes one failed event under collector.dlq.<reason>.
func (q *JetStreamQueue) Write(ctx context.Context, event *models.Event, reason, detail string) error {
	failed := FailedEvent{
		Timestamp: time.Now().UTC(),
		Event:     event,
		Reason:    reason,
		Detail:    detail,
	}

	data, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("failed to marshal dlq entry: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", subjectPrefix, reason)
	if _, err := q.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish dlq entry: %w", err)
	}

	atomic.AddUint64(&q.written, 1)
	metrics.DLQWrites.Inc()
	return nil
}

// Written returns the number of entries published by this instance.
func (q *JetStreamQueue) Written() uint64 {
	return atomic.LoadUint64(&q.written)
}

// Close drains the NATS connection.
func (q *JetStreamQueue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}
