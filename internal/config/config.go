package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	ModelPath      string
	UploadDir      string
	UploadDBPath   string
	MaxUploadBytes int64

	DefaultHorizonDays int
	MinHorizonDays     int
	MaxHorizonDays     int

	RiskCriticalDays int
	RiskHighDays     int
	RiskMediumDays   int

	// Kafka prediction publishing configuration.
	KafkaBrokers          []string
	KafkaPredictionsTopic string
	KafkaEnabled          bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	maxUploadBytes, err := parseInt64("MAX_UPLOAD_BYTES", 50<<20)
	if err != nil {
		return nil, err
	}

	defaultHorizon, err := parseInt("DEFAULT_HORIZON_DAYS", 3)
	if err != nil {
		return nil, err
	}
	minHorizon, err := parseInt("MIN_HORIZON_DAYS", 1)
	if err != nil {
		return nil, err
	}
	maxHorizon, err := parseInt("MAX_HORIZON_DAYS", 30)
	if err != nil {
		return nil, err
	}

	riskCritical, err := parseInt("RISK_CRITICAL_DAYS", 2)
	if err != nil {
		return nil, err
	}
	riskHigh, err := parseInt("RISK_HIGH_DAYS", 7)
	if err != nil {
		return nil, err
	}
	riskMedium, err := parseInt("RISK_MEDIUM_DAYS", 14)
	if err != nil {
		return nil, err
	}

	uploadDir := envOrDefault("UPLOAD_DIR", "data/uploads")

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ModelPath:      envOrDefault("MODEL_PATH", "models/fire_prediction_model.json"),
		UploadDir:      uploadDir,
		UploadDBPath:   envOrDefault("UPLOAD_DB_PATH", filepath.Join(uploadDir, "uploads.db")),
		MaxUploadBytes: maxUploadBytes,

		DefaultHorizonDays: defaultHorizon,
		MinHorizonDays:     minHorizon,
		MaxHorizonDays:     maxHorizon,

		RiskCriticalDays: riskCritical,
		RiskHighDays:     riskHigh,
		RiskMediumDays:   riskMedium,

		KafkaBrokers:          brokers,
		KafkaPredictionsTopic: envOrDefault("KAFKA_PREDICTIONS_TOPIC", "fire-predictions"),
		KafkaEnabled:          kafkaEnabled,
	}

	if cfg.MinHorizonDays < 1 || cfg.MaxHorizonDays < cfg.MinHorizonDays {
		return nil, errors.New("invalid horizon bounds: need 1 <= MIN_HORIZON_DAYS <= MAX_HORIZON_DAYS")
	}
	if cfg.DefaultHorizonDays < cfg.MinHorizonDays || cfg.DefaultHorizonDays > cfg.MaxHorizonDays {
		return nil, errors.New("DEFAULT_HORIZON_DAYS outside [MIN_HORIZON_DAYS, MAX_HORIZON_DAYS]")
	}
	if !(cfg.RiskCriticalDays < cfg.RiskHighDays && cfg.RiskHighDays < cfg.RiskMediumDays) {
		return nil, errors.New("risk thresholds must be strictly ascending: critical < high < medium")
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseInt64(key string, def int64) (int64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}
