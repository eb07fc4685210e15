package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(testLogger())
	require.NoError(t, err)

	assert.Equal(t, 5.0, cfg.Analysis.BucketSeconds)
	assert.Equal(t, 0.3, cfg.Analysis.ProximityThreshold)
	assert.Equal(t, 30.0, cfg.Analysis.TurnGapSeconds)
	assert.Equal(t, 0.7, cfg.Analysis.ToyConfidenceThreshold)
	assert.Equal(t, 0.15, cfg.Analysis.ParentFaceSize)
	assert.Equal(t, "standard", cfg.Analysis.Depth)
	assert.False(t, cfg.Analysis.Sequential)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Messaging.Enabled)
	assert.Equal(t, "interaction_results", cfg.Messaging.QueueName)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ANALYSIS_BUCKET_SECONDS", "10")
	t.Setenv("ANALYSIS_PROXIMITY_THRESHOLD", "0.5")
	t.Setenv("ANALYSIS_DEPTH", "comprehensive")
	t.Setenv("ANALYSIS_SEQUENTIAL", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("METRICS_ENABLED", "false")

	cfg, err := Load(testLogger())
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.Analysis.BucketSeconds)
	assert.Equal(t, 0.5, cfg.Analysis.ProximityThreshold)
	assert.Equal(t, "comprehensive", cfg.Analysis.Depth)
	assert.True(t, cfg.Analysis.Sequential)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadMalformedFloatFallsBack(t *testing.T) {
	t.Setenv("ANALYSIS_BUCKET_SECONDS", "not-a-number")

	cfg, err := Load(testLogger())
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.Analysis.BucketSeconds)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load(testLogger())
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	cfg.Analysis.BucketSeconds = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Analysis.ProximityThreshold = 2.0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Analysis.Depth = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Messaging.Enabled = true
	cfg.Messaging.URL = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadRejectsInvalidDepth(t *testing.T) {
	t.Setenv("ANALYSIS_DEPTH", "verbose")
	_, err := Load(testLogger())
	assert.Error(t, err)
}

func TestApplyLogging(t *testing.T) {
	logger := logrus.New()

	cfg := &Config{Logging: LoggingConfig{Level: "debug", Format: "text"}}
	cfg.ApplyLogging(logger)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	cfg = &Config{Logging: LoggingConfig{Level: "nonsense", Format: "json"}}
	cfg.ApplyLogging(logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}

func TestGetEnvBoolVariants(t *testing.T) {
	t.Setenv("FLAG", "yes")
	assert.True(t, getEnvBool("FLAG", false))

	t.Setenv("FLAG", "off")
	assert.False(t, getEnvBool("FLAG", true))

	t.Setenv("FLAG", "maybe")
	assert.True(t, getEnvBool("FLAG", true))

	assert.False(t, getEnvBool("FLAG_UNSET", false))
}
