package ai

import (
	"errors"
	"time"
)

const (
	DefaultAttempts    = 3
	DefaultHostedDelay = 10 * time.Second
	DefaultLocalStep   = 2 * time.Second
)

// RetryPolicy decides whether to try a call again and how long to wait before it.
// The caller owns the loop.
type RetryPolicy struct {
	Attempts int
	Delay    func(attempt int) time.Duration
}

// FixedDelay waits the same duration after every attempt.
func FixedDelay(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// ScaledDelay waits step×attempt after the given attempt.
func ScaledDelay(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration { return time.Duration(attempt) * step }
}

// PolicyFor returns the default policy of a backend kind: the hosted gateway waits a
// fixed 10s between attempts, local inference waits 2s×attempt.
func PolicyFor(kind Kind, attempts int) RetryPolicy {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	if kind == KindHosted {
		return RetryPolicy{Attempts: attempts, Delay: FixedDelay(DefaultHostedDelay)}
	}
	return RetryPolicy{Attempts: attempts, Delay: ScaledDelay(DefaultLocalStep)}
}

// ShouldRetry is called after a failed attempt (1-based). Only retryable transport
// errors are retried, and never beyond Attempts.
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if err == nil || attempt >= p.Attempts {
		return false
	}
	var transport *TransportError
	if !errors.As(err, &transport) {
		return false
	}
	return transport.Retryable()
}

func (p RetryPolicy) Wait(attempt int) time.Duration {
	if p.Delay == nil {
		return 0
	}
	return p.Delay(attempt)
}
