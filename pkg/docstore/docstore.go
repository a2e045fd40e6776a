// Package docstore abstracts durable storage for submitted essay
// documents. The queue holds job state; the document body lives here,
// so reports and dead-letter inspection can always recover the original
// text.
//
// Implementations use SDK default credential chains and are safe for
// concurrent use.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Store is the essay document storage surface.
type Store interface {
	// Put writes the document at key, replacing any previous version.
	Put(ctx context.Context, key string, body io.Reader, contentLength int64) error

	// Get returns the document body and its length.
	// Returns ErrNotFound if the document does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// Head returns metadata for a single document.
	// Returns ErrNotFound if the document does not exist.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	// Close releases any resources held by the store.
	Close() error
}

// ObjectMeta contains metadata for a stored document.
type ObjectMeta struct {
	// Key is the full document key (path).
	Key string

	// Size is the document size in bytes.
	Size int64

	// LastModified is when the document was last written.
	LastModified time.Time
}

// ProviderType identifies a document storage backend.
type ProviderType string

const (
	// ProviderS3 represents AWS S3 or S3-compatible storage.
	ProviderS3 ProviderType = "s3"

	// ProviderFile represents local filesystem storage.
	ProviderFile ProviderType = "file"
)

func (p ProviderType) String() string {
	return string(p)
}

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrAccessDenied indicates insufficient permissions.
	ErrAccessDenied = errors.New("access denied")

	// ErrBucketNotFound indicates the bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrInvalidCredentials indicates authentication failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnavailable indicates the backend is unavailable.
	ErrUnavailable = errors.New("store unavailable")

	// ErrThrottled indicates the request was rate limited by the backend.
	ErrThrottled = errors.New("request throttled")
)

// StoreError wraps backend-specific errors with context.
type StoreError struct {
	// Op is the operation that failed (e.g., "Put", "Get").
	Op string

	// Provider is the backend type (e.g., "s3").
	Provider ProviderType

	// Bucket is the bucket name, if applicable.
	Bucket string

	// Key is the document key, if applicable.
	Key string

	// Err is the underlying error.
	Err error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Provider, e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Provider, e.Op, e.Bucket, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable reports whether the operation may succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrThrottled) || errors.Is(err, ErrUnavailable)
}

// EssayKey is the canonical document key for a job's essay text.
func EssayKey(jobID string) string {
	return "essays/" + jobID + ".txt"
}
