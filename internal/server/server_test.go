package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/elysia-ai/corrige/internal/errors"
	"github.com/elysia-ai/corrige/pkg/correction"
	"github.com/elysia-ai/corrige/pkg/queue"
	"github.com/elysia-ai/corrige/pkg/report"
)

type memJournal struct{}

func (memJournal) RecordTransition(ctx context.Context, job *queue.Job) error { return nil }

type memDedup struct {
	mu      sync.Mutex
	entries map[string]string
}

func (d *memDedup) Lookup(ctx context.Context, fingerprint string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	jobID, ok := d.entries[fingerprint]
	return jobID, ok, nil
}

func (d *memDedup) Register(ctx context.Context, fingerprint, jobID string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if winner, ok := d.entries[fingerprint]; ok {
		return winner, false, nil
	}
	d.entries[fingerprint] = jobID
	return jobID, true, nil
}

type memHistory struct {
	jobs    map[string]*queue.Job
	reports map[string]*report.CorrectionReport
}

func newMemHistory() *memHistory {
	return &memHistory{
		jobs:    map[string]*queue.Job{},
		reports: map[string]*report.CorrectionReport{},
	}
}

func (h *memHistory) Get(ctx context.Context, jobID string) (*queue.Job, error) {
	if j, ok := h.jobs[jobID]; ok {
		return j, nil
	}
	return nil, fmt.Errorf("job %s: %w", jobID, queue.ErrJobNotFound)
}

func (h *memHistory) ListDeadLettered(ctx context.Context) ([]*queue.Job, error) {
	var out []*queue.Job
	for _, j := range h.jobs {
		if j.Status == queue.StatusDeadLettered {
			out = append(out, j)
		}
	}
	return out, nil
}

func (h *memHistory) GetReport(ctx context.Context, jobID string) (*report.CorrectionReport, error) {
	if rep, ok := h.reports[jobID]; ok {
		return rep, nil
	}
	return nil, assert.AnError
}

func newTestServer(t *testing.T) (*Server, *queue.Dispatcher) {
	t.Helper()
	dispatcher := queue.New(queue.DefaultConfig(), memJournal{}, zap.NewNop(), nil)
	svc := correction.New(
		correction.Config{AllowedLanguages: []string{"pt"}},
		dispatcher,
		&memDedup{entries: map[string]string{}},
		newMemHistory(),
		nil, nil, zap.NewNop(),
	)
	return New("127.0.0.1", 0, Deps{Service: svc, Version: "test"}), dispatcher
}

func TestServerUsesStandardErrorEnvelope(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestServerMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/version", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "METHOD_NOT_ALLOWED", body.Error.Code)
}

func TestServerPort(t *testing.T) {
	tests := []struct {
		name string
		port int
	}{
		{"default port", 8080},
		{"custom port", 9000},
		{"zero port", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dispatcher := queue.New(queue.DefaultConfig(), memJournal{}, zap.NewNop(), nil)
			svc := correction.New(correction.Config{}, dispatcher,
				&memDedup{entries: map[string]string{}},
				newMemHistory(),
				nil, nil, zap.NewNop())
			srv := New("127.0.0.1", tt.port, Deps{Service: svc})
			assert.Equal(t, tt.port, srv.Port())
		})
	}
}

func TestServerRoutesRegistered(t *testing.T) {
	srv, _ := newTestServer(t)

	endpoints := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/health/live", http.StatusOK},
		{"GET", "/health/ready", http.StatusOK},
		{"GET", "/version", http.StatusOK},
		{"GET", "/v1/jobs/dead-letter", http.StatusOK},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, ep.want, rec.Code)
		})
	}
}

func TestSubmitAndFetchResult(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"text": "O gato correu rapido e o gato pulou por cima do muro.", "language": "pt", "priority": 1}`
	req := httptest.NewRequest(http.MethodPost, "/v1/essays", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var sub correction.Submission
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sub))
	require.NotEmpty(t, sub.JobID)
	assert.Equal(t, queue.StatusPending, sub.Status)

	// Resubmission returns the same job as a dedup hit.
	req = httptest.NewRequest(http.MethodPost, "/v1/essays", strings.NewReader(body))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var dup correction.Submission
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dup))
	assert.Equal(t, sub.JobID, dup.JobID)
	assert.True(t, dup.Deduplicated)

	// The job status is visible under /v1/jobs/{id}.
	req = httptest.NewRequest(http.MethodGet, "/v1/jobs/"+sub.JobID, nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res correction.Result
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, queue.StatusPending, res.Status)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{`, "INVALID_BODY"},
		{"empty text", `{"text": "", "language": "pt"}`, apperrors.ReasonEmptyText},
		{"unsupported language", `{"text": "Um texto longo o bastante.", "language": "en"}`, apperrors.ReasonUnsupportedLanguage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/essays", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body apperrors.HTTPErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestGetReportNotReady(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"text": "Um texto com palavras suficientes para aceitar.", "language": "pt"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/essays", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sub correction.Submission
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sub))

	req = httptest.NewRequest(http.MethodGet, "/v1/jobs/"+sub.JobID+"/report", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errBody apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
	assert.Equal(t, "REPORT_NOT_READY", errBody.Error.Code)
}

func TestGetResultUnknownJob(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "JOB_NOT_FOUND", body.Error.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "req-123", body.Error.RequestID)
}
