package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/coalfire-prediction/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/coalfire-prediction/internal/adapter/kafka"
	"github.com/couchcryptid/coalfire-prediction/internal/adapter/uploads"
	"github.com/couchcryptid/coalfire-prediction/internal/config"
	"github.com/couchcryptid/coalfire-prediction/internal/domain"
	"github.com/couchcryptid/coalfire-prediction/internal/model"
	"github.com/couchcryptid/coalfire-prediction/internal/observability"
	"github.com/couchcryptid/coalfire-prediction/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Load the model artifact. A missing or corrupt artifact is not fatal:
	// the service starts unready, uploads keep working, and inference
	// returns 503 until a valid artifact is deployed.
	var predictor *model.Predictor
	if artifact, err := model.LoadArtifact(cfg.ModelPath); err != nil {
		logger.Error("model artifact unavailable, starting without inference",
			"path", cfg.ModelPath, "error", err)
	} else {
		predictor = model.NewPredictor(artifact)
		logger.Info("model artifact loaded",
			"path", cfg.ModelPath,
			"model_type", artifact.ModelType,
			"features", len(artifact.FeatureCols),
		)
	}

	registry, err := uploads.Open(cfg.UploadDBPath, cfg.UploadDir)
	if err != nil {
		logger.Error("failed to open upload registry", "error", err)
		os.Exit(1)
	}
	defer registry.Close()

	// Prediction publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher service.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("kafka publishing enabled",
			"brokers", cfg.KafkaBrokers, "topic", cfg.KafkaPredictionsTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	risk := domain.RiskThresholds{
		Critical: cfg.RiskCriticalDays,
		High:     cfg.RiskHighDays,
		Medium:   cfg.RiskMediumDays,
	}
	svc := service.New(predictor, cfg.ModelPath, risk, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg, svc, registry, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
