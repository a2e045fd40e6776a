package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
		assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, "/metrics", cfg.Metrics.Path)
		assert.Equal(t, 4, cfg.Workers)

		assert.Equal(t, 30*time.Second, cfg.Queue.LeaseTimeout)
		assert.Equal(t, 10*time.Second, cfg.Queue.HeartbeatInterval)
		assert.Equal(t, 3, cfg.Queue.MaxAttempts)
		assert.Equal(t, 500*time.Millisecond, cfg.Queue.BackoffBase)
		assert.Equal(t, 30*time.Second, cfg.Queue.BackoffCap)
		assert.Equal(t, 60*time.Second, cfg.Queue.AgingThreshold)

		assert.Equal(t, 24*time.Hour, cfg.Dedup.Retention)
		assert.Equal(t, 5, cfg.Retrieval.TopK)

		assert.Equal(t, 10*time.Second, cfg.Analysis.AnalyzerTimeout)
		assert.Equal(t, 30*time.Second, cfg.Analysis.JobBudget)
		assert.Equal(t, 3, cfg.Analysis.MinSuccess)

		assert.InDelta(t, 0.30, cfg.Scoring.Weights["syntax"], 1e-9)
		assert.InDelta(t, 0.5, cfg.Scoring.OverlapThreshold, 1e-9)

		assert.Equal(t, []string{"pt"}, cfg.Languages.Allowed)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"server": map[string]any{
				"port": 9000,
				"host": "0.0.0.0",
			},
			"logging": map[string]any{
				"level": "debug",
			},
			"workers": 8,
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, 9000, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 8, cfg.Workers)
	})

	t.Run("RejectsInvalidWorkers", func(t *testing.T) {
		_, err := Load(ctx, map[string]any{"workers": 0})
		require.Error(t, err)
	})

	t.Run("RejectsHeartbeatLongerThanLease", func(t *testing.T) {
		_, err := Load(ctx, map[string]any{
			"queue": map[string]any{
				"heartbeat_interval": "40s",
			},
		})
		require.Error(t, err)
	})

	t.Run("RejectsOverlapOutOfRange", func(t *testing.T) {
		_, err := Load(ctx, map[string]any{
			"scoring": map[string]any{
				"overlap_threshold": 1.5,
			},
		})
		require.Error(t, err)
	})
}

func TestLanguageAllowed(t *testing.T) {
	cfg := &Config{Languages: LanguagesConfig{Allowed: []string{"pt"}}}
	assert.True(t, cfg.LanguageAllowed("pt"))
	assert.False(t, cfg.LanguageAllowed("en"))
}
