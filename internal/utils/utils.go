package utils

import (
	"context"
	"time"
)

var sleep = time.Sleep

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// SetSleepForTest replaces the sleep function used by WaitFor and returns a restore func.
func SetSleepForTest(fn func(time.Duration)) func() {
	original := sleep
	sleep = fn
	return func() { sleep = original }
}
