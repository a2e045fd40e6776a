// Package essay defines the immutable essay submission and its content
// fingerprint.
//
// The fingerprint is the deduplication key for the correction pipeline:
// two submissions with the same normalized text map to the same
// fingerprint and therefore to the same job.
package essay

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// Essay is an immutable submission. It is owned by the caller and
// referenced (never copied) by jobs, analyzer results, and reports.
type Essay struct {
	// ID is the caller-assigned or generated essay identifier.
	ID string `json:"id"`

	// Text is the raw essay text as submitted.
	Text string `json:"text"`

	// Language is the declared language code (e.g., "pt").
	Language string `json:"language"`

	// SubmittedAt is the submission timestamp (UTC).
	SubmittedAt time.Time `json:"submitted_at"`
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize canonicalizes essay text for fingerprinting.
//
// Normalization collapses runs of whitespace to a single space and trims
// the result. Case and accents are preserved: accents are semantically
// significant in the target language, and "rapido" must not fingerprint
// the same as "rápido".
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// Fingerprint returns the stable content fingerprint of the essay text.
//
// The fingerprint is the hex-encoded SHA-256 digest of the normalized
// text. It is derived, never stored independently of its essay.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns the content fingerprint of this essay.
func (e *Essay) Fingerprint() string {
	return Fingerprint(e.Text)
}
