// Package middleware provides the HTTP middleware chain: request
// correlation ids and panic recovery with the standard JSON envelope.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/elysia-ai/corrige/internal/errors"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDHeader is the correlation id header, honored inbound and
// always set outbound.
const RequestIDHeader = "X-Request-ID"

// RequestID attaches a correlation id to the request context and
// response. An inbound X-Request-ID is reused; otherwise one is minted.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// GetRequestID returns the correlation id from ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Recovery converts handler panics into a 500 JSON envelope instead of
// tearing down the connection.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panic",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", GetRequestID(r.Context())))
					WriteError(w, r, http.StatusInternalServerError,
						"INTERNAL_ERROR", fmt.Sprintf("panic: %v", rec))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes the standard JSON error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apperrors.HTTPErrorResponse{
		Error: apperrors.HTTPErrorDetail{
			Code:      code,
			Message:   message,
			RequestID: GetRequestID(r.Context()),
		},
	})
}
