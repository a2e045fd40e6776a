package config

import "time"

// Config is the full runtime configuration for the corrige service.
//
// Values come from defaults, an optional config file, CORRIGE_*
// environment variables, and programmatic overrides, in that order.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Languages LanguagesConfig `mapstructure:"languages"`

	// Workers is the number of concurrent pipeline workers.
	Workers int `mapstructure:"workers"`
}

// ServerConfig configures the HTTP front door.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures zap logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// QueueConfig configures the job dispatcher.
type QueueConfig struct {
	// LeaseTimeout is how long a worker owns a leased job before it
	// becomes re-leasable without a heartbeat.
	LeaseTimeout time.Duration `mapstructure:"lease_timeout"`

	// HeartbeatInterval is how often workers renew their lease.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// MaxAttempts bounds retries before a job is dead-lettered.
	MaxAttempts int `mapstructure:"max_attempts"`

	// BackoffBase is the first retry delay; doubled per attempt.
	BackoffBase time.Duration `mapstructure:"backoff_base"`

	// BackoffCap bounds the retry delay.
	BackoffCap time.Duration `mapstructure:"backoff_cap"`

	// AgingThreshold promotes a waiting job one priority tier per
	// elapsed threshold, so low priority never starves.
	AgingThreshold time.Duration `mapstructure:"aging_threshold"`

	// PollInterval is the worker lease-poll cadence when the queue is empty.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// LeaseRate caps lease polls per second per worker pool.
	LeaseRate float64 `mapstructure:"lease_rate"`
}

// DedupConfig configures the deduplication store.
type DedupConfig struct {
	// Retention is the dedup window: identical text re-submitted within
	// it returns the existing job.
	Retention time.Duration `mapstructure:"retention"`
}

// RetrievalConfig configures the TF-IDF reference index.
type RetrievalConfig struct {
	// TopK is the number of reference passages returned per query.
	TopK int `mapstructure:"top_k"`

	// CorpusDir is the root directory of the reference corpus.
	CorpusDir string `mapstructure:"corpus_dir"`

	// CorpusGlob selects corpus files under CorpusDir (doublestar).
	CorpusGlob string `mapstructure:"corpus_glob"`
}

// AnalysisConfig configures the analyzer harness.
type AnalysisConfig struct {
	// AnalyzerTimeout bounds a single analyzer call.
	AnalyzerTimeout time.Duration `mapstructure:"analyzer_timeout"`

	// JobBudget bounds total analyzer wall-time per job.
	JobBudget time.Duration `mapstructure:"job_budget"`

	// MinSuccess is the minimum number of successful analyzers for a
	// report to be final rather than partial.
	MinSuccess int `mapstructure:"min_success"`
}

// ScoringConfig configures the consolidator.
type ScoringConfig struct {
	// Weights maps analyzer id to its share of the overall score.
	// Renormalized over the dimensions that produced a score.
	Weights map[string]float64 `mapstructure:"weights"`

	// OverlapThreshold is the span-overlap fraction above which two
	// same-severity findings are considered duplicates.
	OverlapThreshold float64 `mapstructure:"overlap_threshold"`
}

// StorageConfig configures durable stores.
type StorageConfig struct {
	// DBPath is the SQLite database for jobs, reports, and dedup entries.
	DBPath string `mapstructure:"db_path"`

	// Docs configures raw essay document storage.
	Docs DocsConfig `mapstructure:"docs"`
}

// DocsConfig selects the raw-document provider.
type DocsConfig struct {
	// Provider is "file" or "s3".
	Provider string `mapstructure:"provider"`

	// Dir is the root directory for the file provider.
	Dir string `mapstructure:"dir"`

	// Bucket, Region, Endpoint configure the s3 provider.
	Bucket   string `mapstructure:"bucket"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// LanguagesConfig is the submission language allow-list.
type LanguagesConfig struct {
	Allowed []string `mapstructure:"allowed"`
}

// LanguageAllowed reports whether lang is accepted for submission.
func (c *Config) LanguageAllowed(lang string) bool {
	for _, l := range c.Languages.Allowed {
		if l == lang {
			return true
		}
	}
	return false
}
