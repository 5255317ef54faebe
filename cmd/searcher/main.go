package main

import (
	"context"
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
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/postsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/resilience"
)

const (
	analyticsBufferSize = 10000
	snapshotInterval    = time.Minute
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
	slog.Info("starting search service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("search service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("search service stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, metrics.Handler())
		defer func() {
			if err := resilience.WithTimeout(context.Background(), 5*time.Second, "metrics-shutdown", shutdownMetrics); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	eng := engine.New(cfg.Engine, m)

	var db *postgres.Client
	if cfg.Postgres.Enabled {
		var err error
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		slog.Info("postgres connected", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	if src := seedSource(cfg, db); src != nil {
		if _, err := corpus.Seed(ctx, eng, src, m); err != nil {
			return fmt.Errorf("seeding corpus: %w", err)
		}
	}

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	agg := analytics.NewAggregator()
	var (
		ingestor          handler.Ingestor
		analyticsProducer kafka.Publisher
	)
	if cfg.Kafka.Enabled {
		postProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.PostIngest)
		defer postProducer.Close()
		eventProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer eventProducer.Close()
		analyticsProducer = eventProducer
		ingestor = publisher.New(db, postProducer, m)
	}

	collector := analytics.NewCollector(analyticsProducer, agg, analyticsBufferSize)
	collector.Start(ctx)
	defer collector.Close()

	if cfg.Kafka.Enabled {
		indexConsumer := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.PostIngest, kafka.RolePostIngest,
			consumer.HandleMessage(trackedIndexer{eng: eng, collector: collector}, m)))
		go func() {
			if err := indexConsumer.Start(ctx); err != nil {
				slog.Error("index consumer error", "error", err)
			}
		}()

		analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, kafka.RoleAnalytics, analytics.HandleEvent(agg))
		go func() {
			if err := analyticsConsumer.Start(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		slog.Info("kafka ingestion enabled",
			"brokers", cfg.Kafka.Brokers,
			"post_topic", cfg.Kafka.Topics.PostIngest,
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
		)
	}

	var snapshots analytics.SnapshotLister
	if db != nil {
		store := aggregator.NewStore(db)
		saved := store.StartPeriodicSave(ctx, agg, snapshotInterval)
		defer func() {
			cancel()
			<-saved
		}()
		snapshots = store
	}

	checker := health.NewChecker()
	checker.Register("search_engine", func(ctx context.Context) health.ComponentHealth {
		stats := eng.Stats()
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d posts indexed", stats.TotalPosts)}
	})
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, false))
	}
	if db != nil {
		checker.Register("postgres", health.PingCheck(db.Ping, true))
	}

	h := handler.New(eng, queryCache, ingestor, collector, m, handler.Options{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})
	analyticsH := analytics.NewHandler(agg, snapshots)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", analyticsH.History)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.RequestTimeout)(chain)
	if cfg.Server.RateLimitRPS > 0 {
		limiter := middleware.NewClientLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
		go sweepLimiter(ctx, limiter)
		chain = middleware.RateLimit(limiter)(chain)
	}
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
		slog.Info("search service listening", "addr", server.Addr)
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

// seedSource picks where the initial corpus comes from, or nil for an empty
// index.
func seedSource(cfg *config.Config, db *postgres.Client) corpus.Source {
	switch {
	case cfg.Engine.SeedFromPostgres && db != nil:
		return corpus.PostgresSource{DB: db}
	case cfg.Engine.SeedFile != "":
		return corpus.FileSource{Path: cfg.Engine.SeedFile}
	default:
		return nil
	}
}

func sweepLimiter(ctx context.Context, l *middleware.ClientLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				slog.Debug("rate limiter swept idle clients", "removed", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

// trackedIndexer records an analytics event for every post indexed from
// Kafka.
type trackedIndexer struct {
	eng       *engine.SearchEngine
	collector *analytics.Collector
}

func (t trackedIndexer) AddDocument(doc index.Document) int {
	position := t.eng.AddDocument(doc)
	t.collector.Track(analytics.IndexEvent{
		Type:      analytics.EventIndexPost,
		PostID:    doc.ID,
		Source:    "kafka",
		Timestamp: time.Now().UTC(),
	})
	return position
}
