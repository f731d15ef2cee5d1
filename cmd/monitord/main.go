// Command monitord is the long-running monitoring service: it assesses the
// previous day on a fixed interval, serves assessments over HTTP, and
// optionally publishes hotspot alerts to Kafka.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/airbusgeo/godal"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/geoandina/droughtfire/internal/adapter/catalog"
	"github.com/geoandina/droughtfire/internal/adapter/geotiff"
	httpadapter "github.com/geoandina/droughtfire/internal/adapter/http"
	kafkaadapter "github.com/geoandina/droughtfire/internal/adapter/kafka"
	"github.com/geoandina/droughtfire/internal/config"
	"github.com/geoandina/droughtfire/internal/hazard"
	"github.com/geoandina/droughtfire/internal/observability"
	"github.com/geoandina/droughtfire/internal/pipeline"
	"github.com/geoandina/droughtfire/internal/scheduler"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	godal.RegisterAll()

	assets, err := geotiff.LoadAssets(cfg.CalibrationPath, cfg.BoundaryPath)
	if err != nil {
		logger.Error("failed to load calibration assets", "error", err)
		os.Exit(1)
	}
	logger.Info("calibration assets loaded",
		"grid", assets.Grid.Size(),
		"width", assets.Grid.Width(),
		"height", assets.Grid.Height(),
	)

	coverWeights := hazard.DefaultCoverWeights()
	if cfg.CoverWeightsPath != "" {
		coverWeights, err = hazard.LoadCoverWeights(cfg.CoverWeightsPath)
		if err != nil {
			logger.Error("failed to load cover weight table", "error", err)
			os.Exit(1)
		}
	}

	client := catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout, cfg.CatalogRetries, assets.Grid, clock, logger, metrics)
	source := catalog.NewCachedSource(client, cfg.CatalogCacheSize, metrics)

	assessor := pipeline.New(source, assets.Grid, assets.Params, coverWeights, cfg.Calibration, logger, metrics)

	// Alert publishing is feature-flagged via KAFKA_ENABLED.
	var publisher scheduler.Publisher
	var alertWriter *kafkaadapter.AlertWriter
	if cfg.KafkaEnabled {
		alertWriter = kafkaadapter.NewAlertWriter(cfg, logger, metrics)
		publisher = alertWriter
		logger.Info("kafka alerting enabled", "topic", cfg.KafkaAlertsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka alerting disabled")
	}

	sched := scheduler.New(assessor, publisher, cfg.ScheduleInterval, clock, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, assessor, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := sched.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
