package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elysia-ai/corrige/internal/config"
	"github.com/elysia-ai/corrige/internal/metrics"
	"github.com/elysia-ai/corrige/internal/observability"
	"github.com/elysia-ai/corrige/internal/server"
	"github.com/elysia-ai/corrige/pkg/analyzer"
	"github.com/elysia-ai/corrige/pkg/correction"
	"github.com/elysia-ai/corrige/pkg/dedup"
	"github.com/elysia-ai/corrige/pkg/docstore"
	filestore "github.com/elysia-ai/corrige/pkg/docstore/file"
	s3store "github.com/elysia-ai/corrige/pkg/docstore/s3"
	"github.com/elysia-ai/corrige/pkg/jobstore"
	"github.com/elysia-ai/corrige/pkg/pipeline"
	"github.com/elysia-ai/corrige/pkg/queue"
	"github.com/elysia-ai/corrige/pkg/report"
	"github.com/elysia-ai/corrige/pkg/retrieval"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the correction service",
	Long: `Run the HTTP intake surface and the correction worker pool.

On startup the service restores unfinished jobs from the journal,
builds the retrieval index from the reference corpus, and begins
processing. SIGHUP rebuilds the index from disk without a restart.`,
	RunE: runServe,
}

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override the configured listen port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var overrides []map[string]any
	if servePort > 0 {
		overrides = append(overrides, map[string]any{"server": map[string]any{"port": servePort}})
	}

	cfg, err := config.Load(ctx, overrides...)
	if err != nil {
		observability.CLILogger.Error("Failed to load configuration", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	logger, err := observability.NewLogger(cfg.Logging.Level)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid log level", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := jobstore.Open(ctx, jobstore.Config{Path: cfg.Storage.DBPath})
	if err != nil {
		logger.Error("failed to open job store", zap.String("path", cfg.Storage.DBPath), zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to open job store", err)
	}
	defer func() { _ = db.Close() }()

	if err := jobstore.Migrate(ctx, db); err != nil {
		logger.Error("failed to migrate job store", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to migrate job store", err)
	}
	store := jobstore.New(db)

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)

	dispatcher := queue.New(queue.Config{
		LeaseTimeout:   cfg.Queue.LeaseTimeout,
		MaxAttempts:    cfg.Queue.MaxAttempts,
		Backoff:        queue.Backoff{Base: cfg.Queue.BackoffBase, Cap: cfg.Queue.BackoffCap},
		AgingThreshold: cfg.Queue.AgingThreshold,
	}, store, logger, met)

	restored, err := store.LoadAll(ctx)
	if err != nil {
		logger.Error("failed to restore jobs", zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Failed to restore jobs", err)
	}
	for _, j := range restored {
		dispatcher.Restore(j)
	}
	if len(restored) > 0 {
		logger.Info("restored unfinished jobs", zap.Int("count", len(restored)))
	}

	holder := &retrieval.Holder{}
	if err := rebuildIndex(holder, cfg, logger); err != nil {
		logger.Error("failed to build retrieval index",
			zap.String("corpus_dir", cfg.Retrieval.CorpusDir),
			zap.Error(err))
		return exitError(foundry.ExitFileReadError, "Failed to build retrieval index", err)
	}

	docs, err := buildDocstore(ctx, cfg)
	if err != nil {
		logger.Error("failed to configure document storage", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to configure document storage", err)
	}
	if docs != nil {
		defer func() { _ = docs.Close() }()
	}

	dedupReg := dedup.New(db, cfg.Dedup.Retention)

	harness := analyzer.NewHarness(analyzer.DefaultSet(), analyzer.HarnessConfig{
		AnalyzerTimeout: cfg.Analysis.AnalyzerTimeout,
		JobBudget:       cfg.Analysis.JobBudget,
	}, logger)

	consolidator := report.NewConsolidator(report.ConsolidatorConfig{
		Weights:          cfg.Scoring.Weights,
		OverlapThreshold: cfg.Scoring.OverlapThreshold,
		MinSuccess:       cfg.Analysis.MinSuccess,
	})

	pool := pipeline.New(pipeline.Config{
		Workers:           cfg.Workers,
		PollInterval:      cfg.Queue.PollInterval,
		HeartbeatInterval: cfg.Queue.HeartbeatInterval,
		LeaseRate:         cfg.Queue.LeaseRate,
		TopK:              cfg.Retrieval.TopK,
	}, dispatcher, holder, harness, consolidator, store, met, logger)

	svc := correction.New(correction.Config{
		AllowedLanguages: cfg.Languages.Allowed,
	}, dispatcher, dedupReg, store, docs, met, logger)

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	srv := server.New(cfg.Server.Host, cfg.Server.Port, server.Deps{
		Service: svc,
		Logger:  logger,
		Version: versionInfo.Version,
		Metrics: metricsHandler,
	})

	// SIGHUP swaps in a freshly built index without interrupting workers.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := rebuildIndex(holder, cfg, logger); err != nil {
					logger.Error("index rebuild failed, keeping current index", zap.Error(err))
				}
			}
		}
	}()

	poolDone := make(chan struct{})
	go func() {
		defer close(poolDone)
		_ = pool.Run(ctx)
	}()

	logger.Info("corrige serving",
		zap.String("addr", srv.Addr()),
		zap.Int("workers", cfg.Workers),
		zap.String("version", versionInfo.Version))

	err = srv.ListenAndServe(ctx,
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout,
		cfg.Server.IdleTimeout, cfg.Server.ShutdownTimeout)

	stop()
	<-poolDone

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Server stopped", err)
	}

	logger.Info("corrige stopped")
	return nil
}

// rebuildIndex loads the corpus from disk, builds a fresh index, and
// swaps it into the holder. The old index keeps serving until the swap.
func rebuildIndex(holder *retrieval.Holder, cfg *config.Config, logger *zap.Logger) error {
	passages, err := retrieval.LoadCorpus(cfg.Retrieval.CorpusDir, cfg.Retrieval.CorpusGlob)
	if err != nil {
		return err
	}
	ix, err := retrieval.Build(time.Now().UTC().Format(time.RFC3339), passages)
	if err != nil {
		return err
	}
	holder.Swap(ix)
	logger.Info("retrieval index ready", zap.Int("passages", ix.Len()))
	return nil
}

// buildDocstore selects the raw-document provider from configuration.
func buildDocstore(ctx context.Context, cfg *config.Config) (docstore.Store, error) {
	switch cfg.Storage.Docs.Provider {
	case "", "none":
		return nil, nil
	case string(docstore.ProviderFile):
		return filestore.New(filestore.Config{BaseDir: cfg.Storage.Docs.Dir})
	case string(docstore.ProviderS3):
		return s3store.New(ctx, s3store.Config{
			Bucket:   cfg.Storage.Docs.Bucket,
			Region:   cfg.Storage.Docs.Region,
			Endpoint: cfg.Storage.Docs.Endpoint,
			// S3-compatible services (MinIO, moto) require path-style URLs.
			ForcePathStyle: cfg.Storage.Docs.Endpoint != "",
		})
	default:
		return nil, fmt.Errorf("unknown docs provider: %q", cfg.Storage.Docs.Provider)
	}
}
