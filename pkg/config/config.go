// Package config loads the analyzer configuration from environment variables
// or a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"interaction-analyzer/pkg/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analysis  AnalysisConfig  `json:"analysis"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics"`
	Messaging MessagingConfig `json:"messaging"`
}

// AnalysisConfig holds the fusion and scoring thresholds.
type AnalysisConfig struct {
	// BucketSeconds is the co-occurrence window for proximity and face
	// analysis (ANALYSIS_BUCKET_SECONDS, default 5).
	BucketSeconds float64 `json:"bucket_seconds"`

	// ProximityThreshold is the normalized distance below which two persons
	// count as close (ANALYSIS_PROXIMITY_THRESHOLD, default 0.3).
	ProximityThreshold float64 `json:"proximity_threshold"`

	// TurnGapSeconds is the maximum utterance-start gap for a speaker change
	// to count as a transition (ANALYSIS_TURN_GAP_SECONDS, default 30).
	TurnGapSeconds float64 `json:"turn_gap_seconds"`

	// ToyConfidenceThreshold qualifies non-keyword objects as play objects
	// (ANALYSIS_TOY_CONFIDENCE, default 0.7).
	ToyConfidenceThreshold float64 `json:"toy_confidence_threshold"`

	// ParentFaceSize is the average face area above which a track is
	// classified as the parent (ANALYSIS_PARENT_FACE_SIZE, default 0.15).
	ParentFaceSize float64 `json:"parent_face_size"`

	// Depth selects result verbosity: standard or comprehensive
	// (ANALYSIS_DEPTH, default standard).
	Depth string `json:"depth"`

	// Sequential disables the concurrent analyzer fan-out
	// (ANALYSIS_SEQUENTIAL, default false).
	Sequential bool `json:"sequential"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logrus level name (LOG_LEVEL, default info).
	Level string `json:"level"`

	// Format is "json" or "text" (LOG_FORMAT, default json).
	Format string `json:"format"`
}

// MetricsConfig holds prometheus exposition configuration.
type MetricsConfig struct {
	// Enabled toggles metric recording (METRICS_ENABLED, default true).
	Enabled bool `json:"enabled"`

	// ListenAddr serves /metrics when non-empty (METRICS_LISTEN_ADDR).
	ListenAddr string `json:"listen_addr"`
}

// MessagingConfig holds the optional AMQP result delivery configuration.
type MessagingConfig struct {
	// Enabled toggles result publishing (AMQP_ENABLED, default false).
	Enabled bool `json:"enabled"`

	// URL is the broker URL (AMQP_URL).
	URL string `json:"url"`

	// QueueName receives completed analysis results (AMQP_QUEUE_NAME,
	// default interaction_results).
	QueueName string `json:"queue_name"`

	// ExchangeName is optional; empty uses the default exchange
	// (AMQP_EXCHANGE_NAME).
	ExchangeName string `json:"exchange_name"`
}

// Load loads the configuration from environment variables or a .env file.
func Load(logger *logrus.Logger) (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		logger.WithError(err).Warn("Failed to get current working directory")
		wd = "unknown"
	}

	possibleEnvFiles := []string{
		".env",
		"../.env",
		filepath.Join(wd, ".env"),
	}

	var loadedFrom string
	for _, envFile := range possibleEnvFiles {
		if _, statErr := os.Stat(envFile); statErr == nil {
			if loadErr := godotenv.Load(envFile); loadErr == nil {
				loadedFrom, _ = filepath.Abs(envFile)
				break
			}
		}
	}

	if loadedFrom != "" {
		logger.WithFields(logrus.Fields{
			"working_dir": wd,
			"path":        loadedFrom,
		}).Info("Successfully loaded .env file")
	} else {
		logger.WithField("working_dir", wd).Debug("No .env file found, using environment variables only")
	}

	config := &Config{
		Analysis: AnalysisConfig{
			BucketSeconds:          getEnvFloat("ANALYSIS_BUCKET_SECONDS", 5),
			ProximityThreshold:     getEnvFloat("ANALYSIS_PROXIMITY_THRESHOLD", 0.3),
			TurnGapSeconds:         getEnvFloat("ANALYSIS_TURN_GAP_SECONDS", 30),
			ToyConfidenceThreshold: getEnvFloat("ANALYSIS_TOY_CONFIDENCE", 0.7),
			ParentFaceSize:         getEnvFloat("ANALYSIS_PARENT_FACE_SIZE", 0.15),
			Depth:                  getEnv("ANALYSIS_DEPTH", "standard"),
			Sequential:             getEnvBool("ANALYSIS_SEQUENTIAL", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:    getEnvBool("METRICS_ENABLED", true),
			ListenAddr: getEnv("METRICS_LISTEN_ADDR", ""),
		},
		Messaging: MessagingConfig{
			Enabled:      getEnvBool("AMQP_ENABLED", false),
			URL:          getEnv("AMQP_URL", ""),
			QueueName:    getEnv("AMQP_QUEUE_NAME", "interaction_results"),
			ExchangeName: getEnv("AMQP_EXCHANGE_NAME", ""),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return config, nil
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if c.Analysis.BucketSeconds <= 0 {
		return fmt.Errorf("bucket seconds must be positive, got %f", c.Analysis.BucketSeconds)
	}
	if c.Analysis.ProximityThreshold <= 0 || c.Analysis.ProximityThreshold > 1.5 {
		return fmt.Errorf("proximity threshold out of range: %f", c.Analysis.ProximityThreshold)
	}
	if c.Analysis.TurnGapSeconds <= 0 {
		return fmt.Errorf("turn gap seconds must be positive, got %f", c.Analysis.TurnGapSeconds)
	}
	switch c.Analysis.Depth {
	case "standard", "comprehensive":
	default:
		return fmt.Errorf("unknown analysis depth %q", c.Analysis.Depth)
	}
	if c.Messaging.Enabled && c.Messaging.URL == "" {
		return fmt.Errorf("messaging enabled but AMQP_URL is empty")
	}
	return nil
}

// ApplyLogging configures the logger from the logging section.
func (c *Config) ApplyLogging(logger *logrus.Logger) {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.EqualFold(c.Logging.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// Helper function to get an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Helper function to get a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	default:
		return defaultValue
	}
}

// getEnvFloat retrieves an environment variable and converts it to float64
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}
