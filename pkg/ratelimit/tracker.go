package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate budget tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "idp_rate_limit_remaining",
		Help: "Requests remaining in the current identity-provider rate limit window",
	})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "idp_rate_limit_waits_total",
		Help: "Total number of backoff waits caused by an exhausted rate budget",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "idp_rate_limit_wait_seconds",
		Help:    "Duration of rate limit backoff waits",
		Buckets: []float64{0, 1, 5, 15, 30, 60, 120},
	})
)

// Tracker records the rate budget from responses and blocks callers while
// the budget is exhausted.
type Tracker struct {
	store   Store
	sleeper Sleeper
	now     func() time.Time
	logger  zerolog.Logger

	// resumedAt is the end of the last completed wait; a state whose
	// resume time is not after it has already been waited out.
	resumedAt time.Time
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithSleeper replaces the timer-based sleeper.
func WithSleeper(s Sleeper) TrackerOption {
	return func(t *Tracker) { t.sleeper = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker backed by store. A nil store keeps the
// budget in memory.
func NewTracker(store Store, logger zerolog.Logger, opts ...TrackerOption) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	t := &Tracker{
		store:   store,
		sleeper: TimerSleeper{},
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Observe parses the rate limit headers of a response and stores the result.
func (t *Tracker) Observe(ctx context.Context, headers http.Header) (State, error) {
	state := ParseHeaders(headers, t.now())

	if err := t.store.Save(ctx, state); err != nil {
		return state, fmt.Errorf("save rate limit state: %w", err)
	}

	rateLimitRemaining.Set(float64(state.Remaining))

	t.logger.Debug().
		Int("remaining", state.Remaining).
		Int("limit", state.Limit).
		Time("reset_at", state.ResetAt).
		Msg("Rate limit state updated")

	return state, nil
}

// Wait blocks until the stored window resets if the budget is exhausted.
// It returns immediately when the budget is healthy, unknown, or the reset
// time has passed.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load rate limit state: %w", err)
	}
	if state == nil || !state.NeedsBackoff() {
		return nil
	}

	resumeAt := state.ResumeAt()
	if !resumeAt.After(t.resumedAt) {
		return nil
	}

	wait := state.WaitDuration(t.now())
	if wait == 0 {
		return nil
	}

	t.logger.Warn().
		Int("remaining", state.Remaining).
		Dur("wait", wait).
		Time("reset_at", state.ResetAt).
		Msg("Rate limit approaching, sleeping until reset")

	rateLimitWaitsTotal.Inc()
	rateLimitWaitSeconds.Observe(wait.Seconds())

	if err := t.sleeper.Sleep(ctx, wait); err != nil {
		return err
	}
	t.resumedAt = resumeAt
	return nil
}
