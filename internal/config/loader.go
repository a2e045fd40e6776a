// Package config loads runtime configuration from defaults, an optional
// config file, environment variables, and programmatic overrides.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Load builds the runtime configuration.
//
// Precedence, lowest to highest:
//  1. built-in defaults
//  2. corrige.yaml in the working directory (if present)
//  3. CORRIGE_* environment variables (CORRIGE_SERVER_PORT=9000)
//  4. overrides maps passed by the caller
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("corrige")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; anything else is not.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("CORRIGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, o := range overrides {
		if err := v.MergeConfigMap(o); err != nil {
			return nil, fmt.Errorf("merge overrides: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("workers", 4)

	v.SetDefault("queue.lease_timeout", "30s")
	v.SetDefault("queue.heartbeat_interval", "10s")
	v.SetDefault("queue.max_attempts", 3)
	v.SetDefault("queue.backoff_base", "500ms")
	v.SetDefault("queue.backoff_cap", "30s")
	v.SetDefault("queue.aging_threshold", "60s")
	v.SetDefault("queue.poll_interval", "250ms")
	v.SetDefault("queue.lease_rate", 50.0)

	v.SetDefault("dedup.retention", "24h")

	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.corpus_dir", "data/corpus")
	v.SetDefault("retrieval.corpus_glob", "**/*.json")

	v.SetDefault("analysis.analyzer_timeout", "10s")
	v.SetDefault("analysis.job_budget", "30s")
	v.SetDefault("analysis.min_success", 3)

	v.SetDefault("scoring.weights", map[string]float64{
		"syntax":    0.30,
		"usage":     0.20,
		"structure": 0.25,
		"cohesion":  0.25,
	})
	v.SetDefault("scoring.overlap_threshold", 0.5)

	v.SetDefault("storage.db_path", "data/corrige.db")
	v.SetDefault("storage.docs.provider", "file")
	v.SetDefault("storage.docs.dir", "data/essays")

	v.SetDefault("languages.allowed", []string{"pt"})
}

func validate(cfg *Config) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be >= 1, got %d", cfg.Workers)
	}
	if cfg.Queue.MaxAttempts <= 0 {
		return fmt.Errorf("queue.max_attempts must be >= 1, got %d", cfg.Queue.MaxAttempts)
	}
	if cfg.Queue.HeartbeatInterval >= cfg.Queue.LeaseTimeout {
		return fmt.Errorf("queue.heartbeat_interval (%s) must be shorter than queue.lease_timeout (%s)",
			cfg.Queue.HeartbeatInterval, cfg.Queue.LeaseTimeout)
	}
	if cfg.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be >= 1, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Scoring.OverlapThreshold < 0 || cfg.Scoring.OverlapThreshold > 1 {
		return fmt.Errorf("scoring.overlap_threshold must be in [0,1], got %g", cfg.Scoring.OverlapThreshold)
	}
	if cfg.Analysis.MinSuccess < 0 {
		return fmt.Errorf("analysis.min_success must be >= 0, got %d", cfg.Analysis.MinSuccess)
	}
	return nil
}
