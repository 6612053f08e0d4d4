package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spigell/jobfit/internal/utils"
)

// ErrUnavailable is returned by probes when a backend cannot be used.
var ErrUnavailable = errors.New("backend unavailable")

// TransportError is a failed call: network error, timeout or non-2xx status.
type TransportError struct {
	Backend    Kind
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: bad status %d: %s", e.Backend, e.StatusCode, utils.TruncateForLog(e.Body, 200))
	}
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt may succeed. Network faults, timeouts,
// rate limiting and server errors are retryable; other statuses are not.
func (e *TransportError) Retryable() bool {
	if e.StatusCode == 0 {
		return !errors.Is(e.Err, context.Canceled)
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// EnvelopeShapeError means the call succeeded but the body lacks the content field.
type EnvelopeShapeError struct {
	Backend Kind
	Field   string
	Body    string
}

func (e *EnvelopeShapeError) Error() string {
	return fmt.Sprintf("%s: response has no %q field: %s", e.Backend, e.Field, utils.TruncateForLog(e.Body, 200))
}

// ExhaustedError wraps the last transport error once the retry policy gives up.
type ExhaustedError struct {
	Backend  Kind
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempt(s): %v", e.Backend, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }
