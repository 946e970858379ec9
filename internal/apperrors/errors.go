/**
 * @description
 * Shared error taxonomy for the sync pipeline.
 * Every terminal per-item failure is classified with a Kind so the batch
 * coordinator can tally skipped vs failed and decide retry behavior.
 *
 * @dependencies
 * - standard "errors", "fmt"
 */

package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a sync failure
type Kind string

const (
	// KindNotFound: identifier unknown upstream. Recorded as skipped, never retried.
	KindNotFound Kind = "not_found"
	// KindRateLimited: provider quota exhausted. Retried with backoff, bounded attempts.
	KindRateLimited Kind = "rate_limited"
	// KindTransient: network error or provider 5xx. Retried with backoff, bounded attempts.
	KindTransient Kind = "transient"
	// KindMalformedResponse: provider payload missing required fields. Never retried.
	KindMalformedResponse Kind = "malformed_response"
	// KindStoreConstraintViolation: unexpected constraint failure (the idempotent
	// no-op conflicts never surface as errors). Never retried.
	KindStoreConstraintViolation Kind = "store_constraint_violation"
	// KindStoreUnavailable: store connectivity/transaction failure. Retryable at
	// the batch level, not inside the reconciler.
	KindStoreUnavailable Kind = "store_unavailable"
)

// Error wraps a cause with its sync classification
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error from a message
func New(kind Kind, format string, v ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, v...)}
}

// Wrap classifies an existing error. Returns nil for a nil cause.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// KindOf extracts the classification from an error chain.
// Unclassified errors report KindTransient so callers err on the retry side.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindTransient
}

// IsKind reports whether err carries the given classification
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether a fetch-side failure is worth another attempt
func Retryable(kind Kind) bool {
	return kind == KindRateLimited || kind == KindTransient
}
