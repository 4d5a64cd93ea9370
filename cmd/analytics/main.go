// Command analytics consumes assessment events from Kafka, aggregates them in
// memory and serves the totals at GET /api/v1/analytics. When Postgres is
// reachable the aggregate is also snapshotted periodically.
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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/internal/analytics/snapshot"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Symptom-Diagnosis-Platform/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	port := flag.Int("port", 8081, "HTTP port for the stats API")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", *port, "topic", cfg.Kafka.Topics.AssessmentEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	aggregator := analytics.NewAggregator()
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AssessmentEvents, analytics.HandleEvent(aggregator))
	defer consumer.Close()

	checker := health.NewChecker()
	probe := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AssessmentEvents)
	defer probe.Close()
	checker.Register("kafka", health.Ping(probe.Ping, true))

	g, gctx := errgroup.WithContext(ctx)
	var lister analytics.SnapshotLister
	db, err := postgres.New(ctx, cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
		checker.Register("postgres", health.Disabled("snapshots disabled"))
	} else {
		defer db.Close()
		snapshots := snapshot.NewStore(db, cfg.Analytics.SnapshotRetention)
		lister = snapshots
		checker.Register("postgres", health.Ping(db.Ping, false))
		if last, err := snapshots.LatestSnapshot(ctx); err != nil {
			slog.Warn("could not restore last snapshot", "error", err)
		} else if last != nil {
			aggregator.Seed(*last)
			slog.Info("restored analytics totals", "total_assessments", last.TotalAssessments)
		}
		g.Go(func() error {
			return snapshots.Run(gctx, aggregator, cfg.Analytics.SnapshotInterval)
		})
	}

	g.Go(func() error {
		return consumer.Start(gctx)
	})

	mux := http.NewServeMux()
	analytics.NewHandler(aggregator, lister).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      middleware.RequestID(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	g.Go(func() error {
		slog.Info("analytics service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving analytics API: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("analytics service exited with error", "error", err)
	}
	slog.Info("analytics service stopped")
}
