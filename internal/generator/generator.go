// Package generator produces synthetic log events and feeds them to a
// collector, for demos and load exercises.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/logcourier/logcourier/internal/models"
)

// Options configures a run of the generator.
type Options struct {
	// URL is the collector's /collect endpoint.
	URL string

	// Count bounds the number of events sent; 0 means run until the
	// context is cancelled.
	Count int

	// Interval is the pause between events.
	Interval time.Duration

	// Types and Levels are the candidate pools for random events. They
	// default to the known type set and the conventional levels.
	Types  []string
	Levels []string
}

// Generator sends randomized events to a collector.
type Generator struct {
	opts   Options
	client *http.Client
}

// New creates a Generator, filling in option defaults.
func New(opts Options) *Generator {
	if len(opts.Types) == 0 {
		opts.Types = models.KnownTypes
	}
	if len(opts.Levels) == 0 {
		opts.Levels = models.Levels
	}
	if opts.Interval <= 0 {
		opts.Interval = 1500 * time.Millisecond
	}

	return &Generator{
		opts:   opts,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Event builds one randomized event.
func (g *Generator) Event() *models.Event {
	return &models.Event{
		ID:        gofakeit.Number(100000, 999999),
		Type:      gofakeit.RandomString(g.opts.Types),
		Level:     gofakeit.RandomString(g.opts.Levels),
		Message:   fmt.Sprintf("Auto-generated event %d", gofakeit.Number(1, 9999)),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Meta: map[string]interface{}{
			"host": gofakeit.DomainName(),
			"pid":  gofakeit.Number(1000, 9999),
		},
	}
}

// Send posts one event to the collector.
func (g *Generator) Send(ctx context.Context, event *models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.opts.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("collector returned %s", resp.Status)
	}

	return nil
}

// Run emits events at the configured interval until the count is reached or
// the context is cancelled. Send errors are logged, not fatal.
func (g *Generator) Run(ctx context.Context) error {
	gofakeit.Seed(time.Now().UnixNano())

	sent := 0
	for {
		if g.opts.Count > 0 && sent >= g.opts.Count {
			return nil
		}

		event := g.Event()
		if err := g.Send(ctx, event); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("send error: %v", err)
		} else {
			log.Printf("sent %d %s", event.ID, event.Type)
		}
		sent++

		select {
		case <-time.After(g.opts.Interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
