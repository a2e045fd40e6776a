// Package handlers implements the HTTP endpoints of the correction
// service: submission, result retrieval, dead-letter inspection,
// health, and version.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/elysia-ai/corrige/internal/errors"
	"github.com/elysia-ai/corrige/internal/server/middleware"
	"github.com/elysia-ai/corrige/pkg/correction"
	"github.com/elysia-ai/corrige/pkg/queue"
)

// Handlers carries the endpoint dependencies.
type Handlers struct {
	service *correction.Service
	logger  *zap.Logger
	version string
}

func New(service *correction.Service, logger *zap.Logger, version string) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}
	return &Handlers{service: service, logger: logger, version: version}
}

// SubmitRequest is the POST /v1/essays payload.
type SubmitRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Priority int    `json:"priority"`
}

// SubmitEssay accepts an essay for asynchronous correction.
func (h *Handlers) SubmitEssay(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}

	sub, err := h.service.SubmitEssay(r.Context(), req.Text, req.Language, req.Priority)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	status := http.StatusAccepted
	if sub.Deduplicated {
		status = http.StatusOK
	}
	writeJSON(w, status, sub)
}

// GetResult serves GET /v1/jobs/{job_id}: the report when available,
// otherwise the job's current status.
func (h *Handlers) GetResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	res, err := h.service.GetResult(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			middleware.WriteError(w, r, http.StatusNotFound, "JOB_NOT_FOUND", "no job with id "+jobID)
			return
		}
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetReport serves GET /v1/jobs/{job_id}/report: the consolidated
// report alone, 404 until the job has succeeded.
func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	res, err := h.service.GetResult(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			middleware.WriteError(w, r, http.StatusNotFound, "JOB_NOT_FOUND", "no job with id "+jobID)
			return
		}
		h.respondError(w, r, err)
		return
	}
	if res.Report == nil {
		middleware.WriteError(w, r, http.StatusNotFound, "REPORT_NOT_READY",
			"job "+jobID+" is "+string(res.Status))
		return
	}
	writeJSON(w, http.StatusOK, res.Report)
}

// ListDeadLettered serves GET /v1/jobs/dead-letter.
func (h *Handlers) ListDeadLettered(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.DeadLettered(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*queue.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// HealthResponse is the GET /health payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health reports liveness. Readiness is equivalent: the service owns
// all of its state in-process once started.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Version: h.version})
}

// Version serves GET /version.
func (h *Handlers) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": h.version})
}

func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	middleware.WriteError(w, r, status, apperrors.ReasonOf(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
