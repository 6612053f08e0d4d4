package enrich

import (
	"fmt"

	"github.com/spigell/jobfit/internal/ai"
	"github.com/spigell/jobfit/internal/utils"
)

// ParseError means the assistant text is not a JSON object. It is never retried.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse scoring response %q: %v", utils.TruncateForLog(e.Raw, 80), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FallbackExhaustedError means the active backend gave up on a record and no
// fallback backend was left to try.
type FallbackExhaustedError struct {
	Backend ai.Kind
	Record  int
	Err     error
}

func (e *FallbackExhaustedError) Error() string {
	return fmt.Sprintf("record %d: no backend left after %s failed: %v", e.Record, e.Backend, e.Err)
}

func (e *FallbackExhaustedError) Unwrap() error { return e.Err }
