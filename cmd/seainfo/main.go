package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/sea-info-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/sea-info-service/internal/adapter/kafka"
	"github.com/couchcryptid/sea-info-service/internal/adapter/khoa"
	"github.com/couchcryptid/sea-info-service/internal/adapter/kma"
	"github.com/couchcryptid/sea-info-service/internal/adapter/upstream"
	"github.com/couchcryptid/sea-info-service/internal/aggregator"
	"github.com/couchcryptid/sea-info-service/internal/cache"
	"github.com/couchcryptid/sea-info-service/internal/config"
	"github.com/couchcryptid/sea-info-service/internal/domain"
	"github.com/couchcryptid/sea-info-service/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer observability.ShutdownTracing(shutdownTracing, logger)

	stations, err := domain.LoadStationTables()
	if err != nil {
		logger.Error("failed to load station tables", "error", err)
		os.Exit(1)
	}
	logger.Info("station tables loaded",
		"tide", len(stations.Tide),
		"buoy", len(stations.Buoy),
		"beaches", len(stations.Beaches),
	)

	fetcher := upstream.NewFetcher(cfg.UpstreamTimeout, cfg.UpstreamRateLimit, metrics, logger)

	// Record publishing is feature-flagged via KAFKA_ENABLED.
	var (
		publisher aggregator.Publisher
		kafkaPub  *kafkaadapter.Publisher
	)
	if cfg.KafkaEnabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPub
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	agg := aggregator.New(aggregator.Deps{
		Weather:   kma.NewClient(fetcher, cfg.KMABaseURL, cfg.APIKey, logger),
		Tide:      khoa.NewTideClient(fetcher, cfg.KHOATideURL, cfg.TideAPIKey, logger),
		Buoy:      khoa.NewBuoyClient(fetcher, cfg.KHOABuoyURL, cfg.APIKey, logger),
		Stations:  stations,
		Cache:     cache.New(cfg.CacheTTL, cfg.CacheSize, nil),
		Publisher: publisher,
	}, aggregator.Settings{
		BuoyCandidates:   cfg.BuoyCandidates,
		GridSearchRadius: cfg.GridSearchRadius,
		LookupTimeout:    cfg.LookupTimeout,
	}, logger, metrics)

	srvOpts := []httpadapter.ServerOption{httpadapter.WithWriteTimeout(cfg.WriteTimeout())}
	if !cfg.RateLimitDisabled {
		srvOpts = append(srvOpts, httpadapter.WithRateLimit(cfg.RateLimitMax))
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, agg, agg, logger, srvOpts...)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	agg.Close()
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
