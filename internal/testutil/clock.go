package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/idp-reports/pkg/ratelimit"
	"github.com/rs/zerolog"
)

// FakeClock is a manual clock whose Sleep records the duration and
// advances the clock instead of blocking.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

// NewFakeClock creates a clock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by d unless ctx is already done.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// Sleeps returns the recorded sleep durations.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// NewTracker returns an in-memory rate limit tracker driven by the clock.
func (c *FakeClock) NewTracker() *ratelimit.Tracker {
	return ratelimit.NewTracker(
		ratelimit.NewMemoryStore(),
		zerolog.Nop(),
		ratelimit.WithClock(c.Now),
		ratelimit.WithSleeper(ratelimit.SleeperFunc(c.Sleep)),
	)
}
