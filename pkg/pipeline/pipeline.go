// Package pipeline runs the correction worker pool: lease a job, fetch
// reference context, fan out the analyzer set, consolidate, persist the
// report, acknowledge.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apperrors "github.com/elysia-ai/corrige/internal/errors"
	"github.com/elysia-ai/corrige/internal/metrics"
	"github.com/elysia-ai/corrige/pkg/analyzer"
	"github.com/elysia-ai/corrige/pkg/queue"
	"github.com/elysia-ai/corrige/pkg/report"
	"github.com/elysia-ai/corrige/pkg/retrieval"
)

// ReportSink persists consolidated reports before a job is acknowledged.
type ReportSink interface {
	SaveReport(ctx context.Context, rep report.CorrectionReport) error
}

// Config tunes the worker pool.
type Config struct {
	// Workers is the number of concurrent job processors.
	Workers int

	// PollInterval is the idle wait between lease attempts when the
	// queue has nothing eligible.
	PollInterval time.Duration

	// HeartbeatInterval renews leases while a job runs. Must be shorter
	// than the dispatcher lease timeout.
	HeartbeatInterval time.Duration

	// LeaseRate caps lease attempts per second across the pool.
	LeaseRate float64

	// TopK is the number of reference passages retrieved per job.
	TopK int
}

// DefaultConfig returns the default pool tuning.
func DefaultConfig() Config {
	return Config{
		Workers:           4,
		PollInterval:      250 * time.Millisecond,
		HeartbeatInterval: 10 * time.Second,
		LeaseRate:         50,
		TopK:              5,
	}
}

// Pool drives the worker loop over a shared dispatcher.
type Pool struct {
	cfg          Config
	dispatcher   *queue.Dispatcher
	index        *retrieval.Holder
	harness      *analyzer.Harness
	consolidator *report.Consolidator
	sink         ReportSink
	met          *metrics.Metrics
	logger       *zap.Logger
	limiter      *rate.Limiter
}

// New creates a worker pool. sink may not be nil: a report must be
// durable before its job is acknowledged. met may be nil.
func New(cfg Config, dispatcher *queue.Dispatcher, index *retrieval.Holder, harness *analyzer.Harness, consolidator *report.Consolidator, sink ReportSink, met *metrics.Metrics, logger *zap.Logger) *Pool {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.LeaseRate <= 0 {
		cfg.LeaseRate = def.LeaseRate
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		cfg:          cfg,
		dispatcher:   dispatcher,
		index:        index,
		harness:      harness,
		consolidator: consolidator,
		sink:         sink,
		met:          met,
		logger:       logger,
		limiter:      rate.NewLimiter(rate.Limit(cfg.LeaseRate), cfg.Workers),
	}
}

// Run blocks, processing jobs until ctx is cancelled.
func (p *Pool) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := range p.cfg.Workers {
		workerID := fmt.Sprintf("worker-%d", i+1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.workerLoop(ctx, workerID)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (p *Pool) workerLoop(ctx context.Context, workerID string) {
	logger := p.logger.With(zap.String("worker_id", workerID))
	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return
		}

		job, err := p.dispatcher.Lease(ctx, workerID)
		if err != nil {
			logger.Error("lease failed", zap.Error(err))
			if !sleepCtx(ctx, p.cfg.PollInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, p.cfg.PollInterval) {
				return
			}
			continue
		}

		p.process(ctx, logger, workerID, job)
	}
}

// process runs one leased job to a terminal acknowledgment. Any error
// after leasing resolves through Fail so retry accounting stays with
// the dispatcher.
func (p *Pool) process(ctx context.Context, logger *zap.Logger, workerID string, job *queue.Job) {
	start := time.Now()
	logger = logger.With(zap.String("job_id", job.ID))

	if err := p.dispatcher.MarkRunning(ctx, job.ID, workerID); err != nil {
		logger.Warn("mark running failed", zap.Error(err))
		return
	}

	// Heartbeats run until processing ends; losing the lease cancels the
	// job context so analyzers stop doing work another worker may redo.
	jctx, cancel := context.WithCancel(ctx)
	stopped := p.startHeartbeats(jctx, cancel, logger, workerID, job.ID)
	defer func() {
		cancel()
		<-stopped
	}()

	rep, err := p.analyze(jctx, job)
	if err != nil {
		p.fail(ctx, logger, workerID, job, err)
		return
	}

	if err := p.sink.SaveReport(ctx, *rep); err != nil {
		p.fail(ctx, logger, workerID, job, apperrors.Transient("report.Save", err))
		return
	}

	if err := p.dispatcher.Complete(ctx, job.ID, workerID); err != nil {
		logger.Warn("complete failed", zap.Error(err))
		return
	}

	if p.met != nil {
		p.met.JobLatency.Observe(time.Since(start).Seconds())
	}
	logger.Info("report generated",
		zap.Float64("overall_score", rep.OverallScore),
		zap.Bool("partial", rep.Partial),
		zap.Duration("elapsed", time.Since(start)))
}

// analyze runs retrieval and the analyzer set, returning the
// consolidated report.
func (p *Pool) analyze(ctx context.Context, job *queue.Job) (*report.CorrectionReport, error) {
	ix := p.index.Current()
	if ix == nil {
		return nil, apperrors.Transient("retrieval.Query", fmt.Errorf("retrieval index not loaded"))
	}
	hits := ix.Query(job.Essay.Text, p.cfg.TopK)

	results := p.harness.Run(ctx, analyzer.Request{Essay: job.Essay, Context: hits})

	succeeded := 0
	for _, res := range results {
		if p.met != nil {
			p.met.AnalyzerResults.WithLabelValues(res.AnalyzerID, string(res.Status)).Inc()
		}
		if res.Status == analyzer.StatusOk {
			succeeded++
		}
	}
	if succeeded == 0 {
		return nil, apperrors.Transient("analyzer.Run", fmt.Errorf("no analyzer produced a result"))
	}

	rep := p.consolidator.Consolidate(job.ID, results, report.ComputeTextMetrics(job.Essay.Text))
	if rep.Partial {
		p.logger.Warn("report degraded",
			zap.String("job_id", job.ID),
			zap.Error(apperrors.ConsolidationUnderrun(succeeded, len(results))))
	}
	return &rep, nil
}

func (p *Pool) fail(ctx context.Context, logger *zap.Logger, workerID string, job *queue.Job, cause error) {
	retryable := apperrors.IsRetryable(cause)
	if err := p.dispatcher.Fail(ctx, job.ID, workerID, cause, retryable); err != nil {
		logger.Warn("fail transition rejected", zap.Error(err))
		return
	}
	p.dispatcher.SetLastErrorReason(job.ID, apperrors.ReasonOf(cause))
}

// startHeartbeats renews the lease until stop. A rejected heartbeat
// means the lease was lost; the job context is cancelled so the worker
// abandons the attempt.
func (p *Pool) startHeartbeats(ctx context.Context, cancel context.CancelFunc, logger *zap.Logger, workerID, jobID string) <-chan struct{} {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(p.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.dispatcher.Heartbeat(ctx, jobID, workerID); err != nil {
					logger.Warn("heartbeat rejected, abandoning attempt", zap.Error(err))
					cancel()
					return
				}
			}
		}
	}()
	return stopped
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
