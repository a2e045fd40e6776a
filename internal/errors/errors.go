// Package errors defines the correction pipeline's error taxonomy and
// the JSON error envelope returned by the HTTP surface.
//
// The taxonomy drives retry policy:
//   - TransientIO: retryable, backed off, dead-lettered after max attempts
//   - PermanentInput: failed immediately, never retried
//   - AnalyzerFailure: isolated to one dimension, never a job failure
//   - ConsolidationUnderrun: report marked partial, not an error
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for retry and reporting policy.
type Kind string

const (
	KindTransientIO           Kind = "transient_io"
	KindPermanentInput        Kind = "permanent_input"
	KindAnalyzerFailure       Kind = "analyzer_failure"
	KindConsolidationUnderrun Kind = "consolidation_underrun"
)

// Reason codes surfaced to callers on permanent input failures.
const (
	ReasonEmptyText           = "EMPTY_TEXT"
	ReasonTextTooShort        = "TEXT_TOO_SHORT"
	ReasonUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
)

// Error is a classified pipeline error.
type Error struct {
	// Kind determines retry policy.
	Kind Kind

	// Reason is a stable machine-readable code (e.g., EMPTY_TEXT).
	Reason string

	// Op is the operation that failed (e.g., "retrieval.Query").
	Op string

	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Op != "":
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	default:
		return e.Reason
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable I/O failure.
func Transient(op string, err error) *Error {
	return &Error{Kind: KindTransientIO, Reason: "TRANSIENT_IO", Op: op, Err: err}
}

// PermanentInput reports malformed input with a stable reason code.
func PermanentInput(reason string, err error) *Error {
	return &Error{Kind: KindPermanentInput, Reason: reason, Err: err}
}

// AnalyzerFailure reports a single analyzer crash or timeout.
func AnalyzerFailure(analyzerID string, err error) *Error {
	return &Error{Kind: KindAnalyzerFailure, Reason: "ANALYZER_FAILURE", Op: analyzerID, Err: err}
}

// ConsolidationUnderrun reports that fewer analyzers succeeded than the
// configured minimum. The report still ships, marked partial.
func ConsolidationUnderrun(succeeded, total int) *Error {
	return &Error{
		Kind:   KindConsolidationUnderrun,
		Reason: "CONSOLIDATION_UNDERRUN",
		Err:    fmt.Errorf("%d of %d analyzers succeeded", succeeded, total),
	}
}

// IsRetryable reports whether err should be retried with backoff.
//
// Unclassified errors are treated as transient: the at-least-once model
// makes re-execution safe, so the conservative default is to retry.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindTransientIO
	}
	return true
}

// KindOf returns the Kind of err, or KindTransientIO for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransientIO
}

// ReasonOf returns the stable reason code of err, or "INTERNAL" when
// the error carries none.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Reason != "" {
		return e.Reason
	}
	return "INTERNAL"
}

// HTTPErrorResponse is the JSON envelope for all error responses.
type HTTPErrorResponse struct {
	Error HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail carries the error code, human message, and request
// correlation id.
type HTTPErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HTTPStatus maps an error to its HTTP status code.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case KindPermanentInput:
			return http.StatusBadRequest
		case KindTransientIO:
			return http.StatusServiceUnavailable
		}
	}
	return http.StatusInternalServerError
}
