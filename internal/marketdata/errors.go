// Package marketdata fronts rate-limited upstream market-data providers with
// a short-TTL cache and rejects malformed queries before any upstream call.
package marketdata

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks caller-supplied symbols/queries that fail validation.
// Always detected before any upstream call; callers fix their input, the
// gateway never retries these.
var ErrInvalidInput = errors.New("invalid input")

// UpstreamError reports a failed upstream provider call: transport error,
// non-success status, timeout, or unparsable payload. It is surfaced
// distinctly from validation errors and is never coerced into an empty
// success value.
type UpstreamError struct {
	Op     string // "quote" or "search"
	Status int    // HTTP status from the provider, 0 for transport errors
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream %s failed: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
