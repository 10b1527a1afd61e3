package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/logcourier/logcourier/internal/config"
	"github.com/logcourier/logcourier/internal/dlq"
	"github.com/logcourier/logcourier/internal/handlers"
	"github.com/logcourier/logcourier/internal/logging"
	"github.com/logcourier/logcourier/internal/ratelimit"
	"github.com/logcourier/logcourier/internal/repository"
	"github.com/logcourier/logcourier/internal/router"
	"github.com/logcourier/logcourier/internal/server"
	"github.com/logcourier/logcourier/internal/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("collector"))
	logging.SetDefault(logger)

	slog.Info("Starting collector",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("postgres_host", cfg.Database.Postgres.Host),
	)

	// Event store
	repo, err := repository.NewPostgresRepository(context.Background(), cfg.Database.Postgres.ConnString())
	if err != nil {
		log.Fatalf("Failed to configure PostgreSQL: %v", err)
	}
	defer repo.Close()

	// Readiness gate: the process never serves while the store is down.
	if err := repo.WaitReady(context.Background(),
		cfg.Database.Postgres.ReadyAttempts,
		cfg.Database.Postgres.ReadyInterval,
	); err != nil {
		log.Fatalf("Storage backend unavailable: %v", err)
	}
	if err := repo.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	slog.Info("Storage ready")

	// Rate limiter
	var rateLimiter ratelimit.RateLimiter
	if cfg.Redis.Enabled && cfg.Ingestion.RateLimitEnabled {
		limiter, err := ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Ingestion.RateLimitRequests,
			cfg.Ingestion.RateLimitWindow,
		)
		if err != nil {
			log.Printf("WARNING: Failed to initialize Redis rate limiter: %v", err)
			log.Println("Continuing without rate limiting")
			rateLimiter = &ratelimit.NoOpRateLimiter{}
		} else {
			rateLimiter = limiter
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.Ingestion.RateLimitRequests),
				slog.Duration("window", cfg.Ingestion.RateLimitWindow),
			)
		}
	} else {
		rateLimiter = &ratelimit.NoOpRateLimiter{}
	}
	defer rateLimiter.Close()

	// Dead letter queue for failed routings
	var dlqWriter dlq.Writer
	if cfg.DLQ.Enabled {
		queue, err := dlq.NewJetStreamQueue(context.Background(), cfg.DLQ.NatsURL)
		if err != nil {
			log.Fatalf("Failed to initialize DLQ: %v", err)
		}
		dlqWriter = queue
		defer queue.Close()
		slog.Info("Dead letter queue enabled", slog.String("nats_url", cfg.DLQ.NatsURL))
	}

	persistorRouter := router.New(cfg.Persistors)
	svc := service.NewCollectService(repo, persistorRouter, dlqWriter)
	handler := handlers.NewHandler(svc, rateLimiter, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.NewRouter(handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Collector listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	slog.Info("Server stopped")
}
