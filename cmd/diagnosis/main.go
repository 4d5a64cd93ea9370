// Command diagnosis serves the symptom-intake API: prediction, history,
// deletion, the symptom catalog and the debug ranking endpoint.
//
// Usage:
//
//	go run ./cmd/diagnosis [-config configs/development.yaml]
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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/assessment/cache"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/assessment/store"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/classifier"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/engine"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/handler"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/materializer"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/diagnosis/service"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting diagnosis service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	checker := health.NewChecker()

	deps := service.Deps{Metrics: m, HistoryLimit: cfg.Diagnosis.HistoryLimit}

	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Error("postgres unavailable, assessments will not be persisted", "error", err)
		checker.Register("postgres", health.Disabled(err.Error()))
	} else {
		defer db.Close()
		st := store.New(db)
		deps.Store = st
		deps.Users = st
		checker.Register("postgres", health.Ping(db.Ping, true))
		slog.Info("assessment store ready", "database", cfg.Postgres.Database)
	}

	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, history caching disabled", "error", err)
		redisClient = nil
		checker.Register("redis", health.Disabled("not connected"))
	} else {
		defer redisClient.Close()
		checker.Register("redis", health.Ping(redisClient.Ping, false))
		slog.Info("history cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}
	deps.History = cache.New(redisClient, cfg.Redis.CacheTTL, m)

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AssessmentEvents)
	defer producer.Close()
	var collector *analytics.Collector
	if err := producer.Ping(ctx); err != nil {
		slog.Warn("kafka unavailable, assessment events disabled", "error", err)
		checker.Register("kafka", health.Disabled(err.Error()))
	} else {
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize, m)
		collector.Start(ctx)
		deps.Tracker = collector
		checker.Register("kafka", health.Ping(producer.Ping, false))
	}

	adapter := classifier.NewLoader(cfg.Model).Adapter()
	defer adapter.Close()
	deps.Engine = engine.New(adapter, m)
	checker.Register("classifier", health.Flag(adapter.Available, "rule table only"))

	breaker := resilience.NewBreaker("assessment-store", resilience.BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         30 * time.Second,
		OnStateChange: func(name string, to resilience.State) {
			m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	deps.Materializer = materializer.New(deps.Store, breaker, cfg.Diagnosis.PersistTimeout, m)

	h := handler.New(service.New(deps))

	var limiter *middleware.RateLimiter
	if n := cfg.Server.RateLimitPerMinute; n > 0 {
		limiter = middleware.NewRateLimiter(n, time.Minute)
		go limiter.Sweep(ctx)
	}

	mux := http.NewServeMux()
	h.Register(mux, middleware.RateLimit(limiter))
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)
	chain = middleware.CORS(cfg.Server.CORSOrigins)(chain)

	servers := []*http.Server{{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}}
	if cfg.Metrics.Enabled {
		servers = append(servers, metrics.NewServer(cfg.Metrics.Port))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			slog.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serving %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		slog.Error("diagnosis service exited with error", "error", err)
	}
	stop()
	if collector != nil {
		collector.Close()
	}
	slog.Info("diagnosis service stopped")
}
