// Package correction is the intake and result surface of the pipeline:
// it validates submissions, deduplicates them by content fingerprint,
// archives the raw document, and enqueues correction jobs.
package correction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/elysia-ai/corrige/internal/errors"
	"github.com/elysia-ai/corrige/internal/metrics"
	"github.com/elysia-ai/corrige/pkg/docstore"
	"github.com/elysia-ai/corrige/pkg/essay"
	"github.com/elysia-ai/corrige/pkg/queue"
	"github.com/elysia-ai/corrige/pkg/report"
	"github.com/elysia-ai/corrige/pkg/retrieval"
)

// minWords is the smallest submission accepted for correction.
const minWords = 3

// DedupRegistry is the fingerprint store consulted before enqueueing.
type DedupRegistry interface {
	Lookup(ctx context.Context, fingerprint string) (string, bool, error)
	Register(ctx context.Context, fingerprint, jobID string) (string, bool, error)
}

// History is the durable job archive. The dispatcher only holds live
// queue state (terminal jobs are not restored across restarts), so
// lookups that miss it are answered from here.
type History interface {
	Get(ctx context.Context, jobID string) (*queue.Job, error)
	ListDeadLettered(ctx context.Context) ([]*queue.Job, error)
	GetReport(ctx context.Context, jobID string) (*report.CorrectionReport, error)
}

// Config tunes the intake surface.
type Config struct {
	// AllowedLanguages is the submission language allow-list.
	AllowedLanguages []string
}

// Submission is the accepted-job answer to SubmitEssay.
type Submission struct {
	JobID  string       `json:"job_id"`
	Status queue.Status `json:"status"`

	// Deduplicated is true when the submission mapped onto an existing
	// job instead of creating a new one.
	Deduplicated bool `json:"deduplicated"`
}

// Result is the answer to GetResult: the report when the job succeeded,
// otherwise the job's current status and last error.
type Result struct {
	JobID  string       `json:"job_id"`
	Status queue.Status `json:"status"`

	Report *report.CorrectionReport `json:"report,omitempty"`

	LastError       string `json:"last_error,omitempty"`
	LastErrorReason string `json:"last_error_reason,omitempty"`
}

// Service wires intake to the dedup registry, document archive, and
// dispatcher.
type Service struct {
	cfg        Config
	dispatcher *queue.Dispatcher
	dedup      DedupRegistry
	history    History
	docs       docstore.Store
	met        *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// New creates the correction service. docs may be nil when document
// archival is disabled; met may be nil.
func New(cfg Config, dispatcher *queue.Dispatcher, dedup DedupRegistry, history History, docs docstore.Store, met *metrics.Metrics, logger *zap.Logger) *Service {
	if len(cfg.AllowedLanguages) == 0 {
		cfg.AllowedLanguages = []string{"pt"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:        cfg,
		dispatcher: dispatcher,
		dedup:      dedup,
		history:    history,
		docs:       docs,
		met:        met,
		logger:     logger,
		now:        time.Now,
	}
}

// SubmitEssay validates and accepts an essay for correction. Identical
// text submitted within the dedup retention window maps onto the
// existing job and returns its current status instead of enqueueing.
func (s *Service) SubmitEssay(ctx context.Context, text, language string, priority int) (*Submission, error) {
	if err := s.validate(text, language); err != nil {
		return nil, err
	}

	fingerprint := essay.Fingerprint(text)

	if jobID, ok, err := s.dedup.Lookup(ctx, fingerprint); err != nil {
		return nil, apperrors.Transient("dedup.Lookup", err)
	} else if ok {
		return s.dedupHit(ctx, jobID)
	}

	jobID := uuid.NewString()
	job := &queue.Job{
		ID: jobID,
		Essay: &essay.Essay{
			ID:          uuid.NewString(),
			Text:        text,
			Language:    language,
			SubmittedAt: s.now().UTC(),
		},
		Fingerprint: fingerprint,
		Priority:    priority,
	}

	if s.docs != nil {
		key := docstore.EssayKey(jobID)
		if err := s.docs.Put(ctx, key, strings.NewReader(text), int64(len(text))); err != nil {
			return nil, apperrors.Transient("docstore.Put", err)
		}
	}

	winner, created, err := s.dedup.Register(ctx, fingerprint, jobID)
	if err != nil {
		return nil, apperrors.Transient("dedup.Register", err)
	}
	if !created {
		// Lost a concurrent first-submission race: the loser is a cache
		// hit, not an error.
		return s.dedupHit(ctx, winner)
	}

	if err := s.dispatcher.Enqueue(ctx, job); err != nil {
		return nil, apperrors.Transient("queue.Enqueue", err)
	}

	s.logger.Info("essay accepted",
		zap.String("job_id", jobID),
		zap.String("language", language),
		zap.Int("priority", priority))
	return &Submission{JobID: jobID, Status: queue.StatusPending}, nil
}

func (s *Service) dedupHit(ctx context.Context, jobID string) (*Submission, error) {
	if s.met != nil {
		s.met.DedupHits.Inc()
	}
	status := queue.StatusPending
	if j, err := s.lookupJob(ctx, jobID); err == nil {
		status = j.Status
	}
	return &Submission{JobID: jobID, Status: status, Deduplicated: true}, nil
}

// lookupJob consults the live dispatcher first, then the durable
// archive. Terminal jobs survive restarts only in the archive.
func (s *Service) lookupJob(ctx context.Context, jobID string) (*queue.Job, error) {
	j, err := s.dispatcher.Get(jobID)
	if errors.Is(err, queue.ErrJobNotFound) {
		return s.history.Get(ctx, jobID)
	}
	return j, err
}

// GetResult returns the report for a succeeded job, or the job's
// current status otherwise.
func (s *Service) GetResult(ctx context.Context, jobID string) (*Result, error) {
	j, err := s.lookupJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	res := &Result{
		JobID:           j.ID,
		Status:          j.Status,
		LastError:       j.LastError,
		LastErrorReason: j.LastErrorReason,
	}
	if j.Status != queue.StatusSucceeded {
		return res, nil
	}

	rep, err := s.history.GetReport(ctx, jobID)
	if err != nil {
		return nil, apperrors.Transient("reports.Get", err)
	}
	res.Report = rep
	return res, nil
}

// DeadLettered lists jobs that exhausted their retries, for inspection
// and caller-driven resubmission. The archive is authoritative (every
// transition is journaled there first); the dispatcher fills in any
// job whose final journal write has not been read back yet.
func (s *Service) DeadLettered(ctx context.Context) ([]*queue.Job, error) {
	archived, err := s.history.ListDeadLettered(ctx)
	if err != nil {
		return nil, apperrors.Transient("history.ListDeadLettered", err)
	}

	seen := make(map[string]bool, len(archived))
	for _, j := range archived {
		seen[j.ID] = true
	}
	for _, j := range s.dispatcher.DeadLettered() {
		if !seen[j.ID] {
			archived = append(archived, j)
		}
	}

	sort.Slice(archived, func(i, j int) bool {
		a, b := archived[i], archived[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return archived, nil
}

func (s *Service) validate(text, language string) error {
	normalized := essay.Normalize(text)
	if normalized == "" {
		return apperrors.PermanentInput(apperrors.ReasonEmptyText, fmt.Errorf("essay text is empty"))
	}
	if len(retrieval.Tokenize(normalized)) < minWords {
		return apperrors.PermanentInput(apperrors.ReasonTextTooShort, fmt.Errorf("essay must have at least %d words", minWords))
	}
	for _, l := range s.cfg.AllowedLanguages {
		if l == language {
			return nil
		}
	}
	return apperrors.PermanentInput(apperrors.ReasonUnsupportedLanguage, fmt.Errorf("language %q is not supported", language))
}
