package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/urfave/cli.v1"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/resilience"
)

var serveCommand = cli.Command{
	Name:   "serve",
	Usage:  "Serve the search API over HTTP",
	Action: runServe,
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx, c, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer e.Close()
	cfg := e.cfg

	engine, err := e.loadEngine(ctx)
	if err != nil {
		return err
	}
	slog.Info("index ready",
		"build_id", engine.BuildID(),
		"docs", engine.Docs().Len(),
		"terms", engine.Index().Terms(),
	)

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		err := resilience.Retry(ctx, "connect redis", resilience.DefaultRetryConfig(), func(ctx context.Context) error {
			var err error
			redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, engine.BuildID(), e.metrics)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		publisher = producer
		slog.Info("analytics publishing enabled", "topic", cfg.Kafka.AnalyticsTopic)
	}
	collector := analytics.NewCollector(publisher, aggregator, cfg.Kafka)
	collector.Start(context.Background())
	defer collector.Close()
	collector.TrackBuild(analytics.BuildEvent{
		Type:      analytics.EventBuild,
		BuildID:   engine.BuildID(),
		Documents: engine.Docs().Len(),
		Terms:     engine.Index().Terms(),
		Timestamp: time.Now().UTC(),
	})

	exec := executor.New(e.tok, engine.Docs(), engine.Index(), executor.Options{
		Mode:        cfg.Search.Mode,
		MatchFields: cfg.Search.MatchFields,
	}, e.metrics)
	h := handler.New(exec, queryCache, collector, cfg.Search)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(aggregator).Stats)
	checker := newChecker(engine, redisClient)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", e.metrics.Handler())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain(ctx, mux, cfg, e),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		<-shutdownDone
	}
	slog.Info("search service stopped")
	return nil
}

// chain wraps the mux, outermost first: RequestID, Logging, CORS,
// RateLimit, Timeout, Metrics.
func chain(ctx context.Context, mux *http.ServeMux, cfg *config.Config, e *env) http.Handler {
	var h http.Handler = mux
	h = middleware.Metrics(e.metrics)(h)
	h = middleware.Timeout(cfg.Server.WriteTimeout)(h)
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimit, time.Minute)
		go limiter.Cleanup(ctx, 5*time.Minute)
		h = middleware.RateLimit(limiter)(h)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		h = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(h)
	}
	h = middleware.Logging(h)
	h = middleware.RequestID(h)
	return h
}

func newChecker(engine *indexer.Engine, redisClient *pkgredis.Client) *health.Checker {
	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		if n := engine.Docs().Len(); n > 0 {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d documents, build %s", n, engine.BuildID())}
		}
		return health.ComponentHealth{Status: health.StatusDown, Message: "index is empty"}
	})
	if redisClient != nil {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp, Message: redisClient.Addr()}
		})
	}
	return checker
}
