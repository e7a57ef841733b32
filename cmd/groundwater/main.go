package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/groundwater-trends/internal/adapter/backend"
	httpadapter "github.com/couchcryptid/groundwater-trends/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/groundwater-trends/internal/adapter/kafka"
	"github.com/couchcryptid/groundwater-trends/internal/adapter/memory"
	"github.com/couchcryptid/groundwater-trends/internal/aggregator"
	"github.com/couchcryptid/groundwater-trends/internal/config"
	"github.com/couchcryptid/groundwater-trends/internal/observability"
	"github.com/couchcryptid/groundwater-trends/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/jonboulle/clockwork"
)

// readinessFunc adapts a function to sharedobs.ReadinessChecker.
type readinessFunc func(ctx context.Context) error

func (f readinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	client := backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, cfg.BackendRateLimit, metrics, logger)
	agg := aggregator.New(client, aggregator.Options{
		FetchTimeout: cfg.StationFetchTimeout,
		Concurrency:  cfg.FetchConcurrency,
	}, logger, metrics)

	store, err := memory.NewSnapshotStore(cfg.SnapshotCacheSize)
	if err != nil {
		logger.Error("failed to create snapshot store", "error", err)
		os.Exit(1)
	}

	loaders := pipeline.MultiLoader{store}
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		loaders = append(loaders, writer)
		logger.Info("kafka snapshot publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka snapshot publishing disabled")
	}

	var p *pipeline.Pipeline
	var ready sharedobs.ReadinessChecker
	if len(cfg.Regions) > 0 {
		p = pipeline.New(agg, pipeline.NewSnapshotBuilder(clock, cfg.TrendWindow), loaders, clock, logger, metrics, pipeline.Options{
			Regions:      cfg.Regions,
			MinCoverage:  cfg.MinCoverage,
			LookbackDays: cfg.LookbackDays,
			Interval:     cfg.RefreshInterval,
		})
		ready = p
	} else {
		logger.Info("no REGIONS configured, refresh pipeline disabled")
		ready = readinessFunc(func(ctx context.Context) error {
			_, err := client.ListStations(ctx)
			return err
		})
	}

	api := httpadapter.NewAPI(agg, store, httpadapter.Defaults{
		MinCoverage:  cfg.MinCoverage,
		LookbackDays: cfg.LookbackDays,
		TrendWindow:  cfg.TrendWindow,
	}, clock, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, api, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
