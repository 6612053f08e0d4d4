package pipeline

import (
	"errors"
	"fmt"

	"github.com/spigell/jobfit/internal/config"
)

// Reason tells operators why a run halted.
type Reason string

const (
	ReasonConfiguration     Reason = "configuration"
	ReasonProbeUnavailable  Reason = "probe-unavailable"
	ReasonCollectorFailure  Reason = "collector-failure"
	ReasonFallbackExhausted Reason = "fallback-exhausted"
	ReasonFailure           Reason = "failure"
)

// Exit statuses per halt reason.
const (
	ExitOK                = 0
	ExitFailure           = 1
	ExitConfiguration     = 2
	ExitProbeUnavailable  = 3
	ExitCollectorFailure  = 4
	ExitFallbackExhausted = 5
)

// ErrNoBackend is wrapped when neither backend answered its probe.
var ErrNoBackend = errors.New("no scoring backend is available")

// HaltError is returned for every run that ends in StateHalted.
type HaltError struct {
	Reason Reason
	Err    error
}

func (e *HaltError) Error() string {
	return fmt.Sprintf("pipeline halted (%s): %v", e.Reason, e.Err)
}

func (e *HaltError) Unwrap() error { return e.Err }

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var halt *HaltError
	if errors.As(err, &halt) {
		switch halt.Reason {
		case ReasonConfiguration:
			return ExitConfiguration
		case ReasonProbeUnavailable:
			return ExitProbeUnavailable
		case ReasonCollectorFailure:
			return ExitCollectorFailure
		case ReasonFallbackExhausted:
			return ExitFallbackExhausted
		}
		return ExitFailure
	}

	var invalid *config.ValidationError
	if errors.As(err, &invalid) {
		return ExitConfiguration
	}

	return ExitFailure
}
