// Package ratelimit implements identity-provider rate budget tracking.
// It reads the X-Rate-Limit-Remaining and X-Rate-Limit-Reset headers of
// every response and suspends the caller until the window resets when the
// budget is nearly exhausted.
package ratelimit

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Response headers carrying the rate budget.
const (
	HeaderLimit     = "X-Rate-Limit-Limit"
	HeaderRemaining = "X-Rate-Limit-Remaining"
	HeaderReset     = "X-Rate-Limit-Reset"
)

const (
	// BackoffThreshold triggers a wait when the remaining budget is at or below it.
	BackoffThreshold = 1

	// DefaultResetWindow is assumed when the reset header is absent or unparseable.
	DefaultResetWindow = 60 * time.Second

	// SafetyMargin is added to the reset time before requests resume.
	SafetyMargin = 1 * time.Second
)

// State is the rate budget advertised by the most recent response.
type State struct {
	// Limit is the window size from X-Rate-Limit-Limit, 0 when not sent.
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the current window.
	// A missing header is read as BackoffThreshold, i.e. exhausted.
	Remaining int `json:"remaining"`

	// ResetAt is the epoch second at which the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the headers were observed.
	LastUpdate time.Time `json:"last_update"`
}

// ParseHeaders builds a State from response headers observed at now.
// Missing or malformed values fall back to the conservative defaults.
func ParseHeaders(headers http.Header, now time.Time) State {
	state := State{
		Remaining:  BackoffThreshold,
		ResetAt:    now.Add(DefaultResetWindow),
		LastUpdate: now,
	}

	if v, ok := parseIntHeader(headers, HeaderRemaining); ok {
		state.Remaining = int(v)
	}
	if v, ok := parseIntHeader(headers, HeaderReset); ok {
		state.ResetAt = time.Unix(v, 0)
	}
	if v, ok := parseIntHeader(headers, HeaderLimit); ok {
		state.Limit = int(v)
	}

	return state
}

// NeedsBackoff reports whether the caller must wait for the window to reset.
func (s State) NeedsBackoff() bool {
	return s.Remaining <= BackoffThreshold
}

// WaitDuration returns how long to wait from now until ResetAt plus the
// safety margin. It is never negative.
func (s State) WaitDuration(now time.Time) time.Duration {
	d := s.ResumeAt().Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// ResumeAt is the instant requests may continue after a backoff.
func (s State) ResumeAt() time.Time {
	return s.ResetAt.Add(SafetyMargin)
}

func parseIntHeader(headers http.Header, key string) (int64, bool) {
	raw := strings.TrimSpace(headers.Get(key))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
