package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrWaitCancelled is returned when the context ends during a backoff wait.
var ErrWaitCancelled = errors.New("rate limit wait cancelled")

// Sleeper suspends the caller for a duration or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to the Sleeper interface.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f(ctx, d).
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper waits on a real timer.
type TimerSleeper struct{}

// Sleep blocks for d. It returns an error wrapping both ErrWaitCancelled and
// the context error if ctx ends first.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrWaitCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}
