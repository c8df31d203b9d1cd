// Package apierr provides shared error sentinels and retry infrastructure
// for the transcription API client. Provider-specific error types are
// classified into these sentinels at the adapter boundary.
//
// Providers map HTTP status codes to these errors using fmt.Errorf("%s: %w", msg, sentinel).
// Callers check with errors.Is(err, apierr.ErrRateLimit) etc.
package apierr

import (
	"errors"
	"strings"
)

// Sentinel errors for API interaction failures.
var (
	// ErrRateLimit indicates the API rate limit was exceeded (temporary, retryable).
	ErrRateLimit = errors.New("rate limit exceeded")

	// ErrQuotaExceeded indicates the API quota was exceeded (billing issue, not retryable).
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTimeout indicates a request timed out.
	ErrTimeout = errors.New("request timeout")

	// ErrServerError indicates a 5xx response (temporary, retryable).
	ErrServerError = errors.New("server error")

	// ErrAuthFailed indicates API authentication failed (invalid key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrBadRequest indicates a client error (4xx) that is not otherwise classified.
	ErrBadRequest = errors.New("bad request")
)

// transientMarkers are error-text fragments emitted by backends that do not
// surface structured error types. Substring matching is a compatibility shim
// for opaque errors; classified sentinels take precedence.
var transientMarkers = []string{
	"rate_limit_exceeded",
	"server_error",
	"temporarily_unavailable",
}

// IsTransient reports whether an error is temporary and worth retrying.
// Sentinels are checked first; unclassified errors fall back to inspecting
// the message for known transient markers.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRateLimit) || errors.Is(err, ErrTimeout) || errors.Is(err, ErrServerError) {
		return true
	}

	// Definitively permanent classifications.
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrBadRequest) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
