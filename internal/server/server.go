// Package server assembles the HTTP surface: router, middleware chain,
// and the standard JSON error envelope for unmatched routes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/elysia-ai/corrige/internal/server/handlers"
	"github.com/elysia-ai/corrige/internal/server/middleware"
	"github.com/elysia-ai/corrige/pkg/correction"
)

// Deps are the collaborators the HTTP surface exposes.
type Deps struct {
	Service *correction.Service
	Logger  *zap.Logger
	Version string

	// Metrics, when non-nil, is mounted at /metrics.
	Metrics http.Handler
}

// Server is the HTTP front door.
type Server struct {
	host   string
	port   int
	router chi.Router
}

// New builds the server and its routes.
func New(host string, port int, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := handlers.New(deps.Service, logger, deps.Version)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteError(w, req, http.StatusNotFound, "NOT_FOUND", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed for this endpoint")
	})

	r.Get("/health", h.Health)
	r.Get("/health/live", h.Health)
	r.Get("/health/ready", h.Health)
	r.Get("/version", h.Version)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/essays", h.SubmitEssay)
		r.Get("/jobs/dead-letter", h.ListDeadLettered)
		r.Get("/jobs/{job_id}", h.GetResult)
		r.Get("/jobs/{job_id}/report", h.GetReport)
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return &Server{host: host, port: port, router: r}
}

// Handler returns the root handler, for serving and for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Port returns the configured listen port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the host:port listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// ListenAndServe runs the server until ctx is cancelled, then shuts
// down gracefully within shutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, readTimeout, writeTimeout, idleTimeout, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
