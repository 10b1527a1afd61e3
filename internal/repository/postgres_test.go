package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/logcourier/logcourier/internal/models"
)

// setupTestDatabase creates a PostgreSQL testcontainer and ensures the schema.
func setupTestDatabase(t *testing.T) (*PostgresRepository, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("logsdb_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to get connection string: %v", err)
	}

	repo, err := NewPostgresRepository(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create repository: %v", err)
	}

	if err := repo.WaitReady(ctx, 5, time.Second); err != nil {
		container.Terminate(ctx)
		t.Fatalf("Database never became ready: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to ensure schema: %v", err)
	}

	cleanup := func() {
		repo.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return repo, cleanup
}

func TestNewPostgresRepositoryInvalidConnString(t *testing.T) {
	_, err := NewPostgresRepository(context.Background(), "invalid://connection")
	require.Error(t, err)
}

func TestQueryRecentRejectsNonPositiveLimit(t *testing.T) {
	// The limit check runs before any database access, so an unreachable
	// backend is fine here.
	repo, err := NewPostgresRepository(context.Background(), "postgres://u:p@localhost:1/db")
	require.NoError(t, err)
	defer repo.Close()

	_, err = repo.QueryRecent(context.Background(), 0, nil)
	require.Error(t, err)
	_, err = repo.QueryRecent(context.Background(), -5, nil)
	require.Error(t, err)
}

func TestWaitReadyExhaustsAttempts(t *testing.T) {
	// Port 1 is never listening; WaitReady must give up after the bounded
	// attempts and report the dependency as unavailable.
	repo, err := NewPostgresRepository(context.Background(), "postgres://u:p@localhost:1/db?connect_timeout=1")
	require.NoError(t, err)
	defer repo.Close()

	err = repo.WaitReady(context.Background(), 2, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDependencyUnavailable)
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()

	// Already created once by setup; twice more must not error.
	require.NoError(t, repo.EnsureSchema(context.Background()))
	require.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestAppendAndQueryRecentRoundTrip(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	event := &models.Event{
		ID:        123456,
		Type:      models.TypeAuth,
		Level:     "WARN",
		Message:   "failed login",
		Timestamp: "2024-01-01T00:00:00Z",
		Meta: map[string]interface{}{
			"host": "web-1",
			"pid":  float64(4242),
			"tags": []interface{}{"a", "b"},
		},
	}
	require.NoError(t, repo.Append(ctx, event))

	logs, err := repo.QueryRecent(ctx, 10, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	got := logs[0]
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Type, got.Type)
	assert.Equal(t, event.Level, got.Level)
	assert.Equal(t, event.Message, got.Message)
	assert.True(t, got.Timestamp.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, event.Meta, got.Meta)
}

func TestAppendNilMetaStoredAsEmptyObject(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, &models.Event{
		ID:        1,
		Type:      models.TypeSystem,
		Level:     "INFO",
		Message:   "no meta",
		Timestamp: "2024-01-01T00:00:00Z",
	}))

	logs, err := repo.QueryRecent(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, map[string]interface{}{}, logs[0].Meta)
}

func TestAppendBadTimestampFallsBackToNow(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	require.NoError(t, repo.Append(ctx, &models.Event{
		ID:        2,
		Type:      models.TypeApplication,
		Level:     "ERROR",
		Message:   "bad clock",
		Timestamp: "not-a-date",
	}))
	after := time.Now().UTC().Add(time.Second)

	logs, err := repo.QueryRecent(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].Timestamp.After(before) && logs[0].Timestamp.Before(after),
		"timestamp %v not within [%v, %v]", logs[0].Timestamp, before, after)
}

func TestQueryRecentLimitAndOrder(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Append(ctx, &models.Event{
			ID:        i,
			Type:      models.TypeSystem,
			Level:     "INFO",
			Message:   "event",
			Timestamp: base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339),
		}))
	}

	logs, err := repo.QueryRecent(ctx, 2, nil)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	// Newest first.
	assert.Equal(t, 4, logs[0].ID)
	assert.Equal(t, 3, logs[1].ID)
	assert.True(t, logs[0].Timestamp.After(logs[1].Timestamp))
}

func TestQueryRecentSinceFilter(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Append(ctx, &models.Event{
			ID:        i,
			Type:      models.TypePayment,
			Level:     "INFO",
			Message:   "event",
			Timestamp: base.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		}))
	}

	since := base.Add(2 * time.Hour)
	logs, err := repo.QueryRecent(ctx, 10, &since)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.False(t, l.Timestamp.Before(since))
	}
}

func TestAggregateByType(t *testing.T) {
	repo, cleanup := setupTestDatabase(t)
	defer cleanup()
	ctx := context.Background()

	insert := func(eventType string, n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, repo.Append(ctx, &models.Event{
				ID:        i,
				Type:      eventType,
				Level:     "INFO",
				Message:   "event",
				Timestamp: "2024-01-01T00:00:00Z",
			}))
		}
	}
	insert(models.TypeAuth, 3)
	insert(models.TypePayment, 2)
	insert("custom-type", 1)

	counts, err := repo.AggregateByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[models.TypeAuth])
	assert.Equal(t, int64(2), counts[models.TypePayment])
	assert.Equal(t, int64(1), counts["custom-type"])
}
