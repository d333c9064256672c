package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should return the defaults without overrides", func(t *testing.T) {
		cfg, err := LoadConfig("FCTEST_EMPTY_")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("Should apply environment overrides", func(t *testing.T) {
		t.Setenv("FCTEST_BASE_URL", "http://forecast.internal:9000")
		t.Setenv("FCTEST_POLL_INTERVAL", "500ms")
		t.Setenv("FCTEST_MAX_POLL_FAILURES", "3")
		t.Setenv("FCTEST_LOG_JSON", "true")
		t.Setenv("FCTEST_DEFAULT_LOCATION", "Nashik")

		cfg, err := LoadConfig("FCTEST_")
		require.NoError(t, err)
		assert.Equal(t, "http://forecast.internal:9000", cfg.BaseURL)
		assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
		assert.Equal(t, 3, cfg.MaxPollFailures)
		assert.True(t, cfg.LogJSON)
		assert.Equal(t, "Nashik", cfg.DefaultLocation)
		assert.Equal(t, 75, cfg.ConfidenceThreshold)
	})

	t.Run("Should reject invalid values", func(t *testing.T) {
		t.Setenv("FCTEST_BAD_LOG_LEVEL", "loud")
		_, err := LoadConfig("FCTEST_BAD_")
		assert.ErrorContains(t, err, "configuration validation failed")
	})

	t.Run("Should reject an out-of-range iteration count", func(t *testing.T) {
		t.Setenv("FCTEST_ITER_MAX_ITERATIONS", "9")
		_, err := LoadConfig("FCTEST_ITER_")
		assert.Error(t, err)
	})
}

func TestConfig_EffectiveRequestTimeout(t *testing.T) {
	t.Run("Should fall back to the poll interval", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, cfg.PollInterval, cfg.EffectiveRequestTimeout())
	})

	t.Run("Should prefer an explicit timeout", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.RequestTimeout = 10 * time.Second
		assert.Equal(t, 10*time.Second, cfg.EffectiveRequestTimeout())
	})
}
