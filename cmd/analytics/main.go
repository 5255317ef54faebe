// Command analytics runs search analytics as its own service.
//
// It consumes the search-analytics topic written by every searcher replica,
// aggregates the events in memory and serves GET /api/v1/analytics. With
// Postgres enabled, snapshots are saved every minute and served from
// GET /api/v1/analytics/history.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("analytics service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("analytics service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	if !cfg.Kafka.Enabled {
		return errors.New("the analytics service needs kafka.enabled")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New(nil)
	agg := analytics.NewAggregator()

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, kafka.RoleAnalytics, analytics.HandleEvent(agg))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	checker := health.NewChecker()
	checker.Register("aggregator", func(ctx context.Context) health.ComponentHealth {
		stats := agg.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d searches aggregated", stats.TotalSearches+stats.TotalTagSearches),
		}
	})

	var snapshots analytics.SnapshotLister
	if cfg.Postgres.Enabled {
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		store := aggregator.NewStore(db)
		saved := store.StartPeriodicSave(ctx, agg, time.Minute)
		defer func() {
			cancel()
			<-saved
		}()
		snapshots = store
		checker.Register("postgres", health.PingCheck(db.Ping, true))
	}

	h := analytics.NewHandler(agg, snapshots)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", h.History)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("analytics service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}
	return resilience.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout, "http-shutdown", server.Shutdown)
}
