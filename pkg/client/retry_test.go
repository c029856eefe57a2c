package client

import (
	"context"
	"errors"
	"testing"
)

func TestRetryRateLimited_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	err := retryRateLimited(context.Background(), 3, testLogger(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryRateLimited_RetriesRateLimit(t *testing.T) {
	calls := 0
	err := retryRateLimited(context.Background(), 3, testLogger(), func() error {
		calls++
		if calls < 3 {
			return &APIError{StatusCode: 429, Class: ErrorClassRateLimit}
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryRateLimited_DoesNotRetryOtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "server", err: &APIError{StatusCode: 500, Class: ErrorClassServer}},
		{name: "client", err: &APIError{StatusCode: 400, Class: ErrorClassClient}},
		{name: "network", err: &APIError{Class: ErrorClassNetwork, Err: errors.New("refused")}},
		{name: "other", err: errors.New("decode failure")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := retryRateLimited(context.Background(), 3, testLogger(), func() error {
				calls++
				return tt.err
			})

			if !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
			if calls != 1 {
				t.Errorf("calls = %d, want 1", calls)
			}
		})
	}
}

func TestRetryRateLimited_Exhausted(t *testing.T) {
	calls := 0
	rateErr := &APIError{StatusCode: 429, Class: ErrorClassRateLimit}
	err := retryRateLimited(context.Background(), 2, testLogger(), func() error {
		calls++
		return rateErr
	})

	if !errors.Is(err, ErrRateLimitExhausted) {
		t.Errorf("error = %v, want ErrRateLimitExhausted", err)
	}
	if !errors.Is(err, rateErr) {
		t.Errorf("error = %v, want it to wrap the last APIError", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestRetryRateLimited_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryRateLimited(ctx, 5, testLogger(), func() error {
		calls++
		cancel()
		return &APIError{StatusCode: 429, Class: ErrorClassRateLimit}
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("error = %v, want ErrContextCancelled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want it to wrap context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryRateLimited_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_ = retryRateLimited(context.Background(), 0, testLogger(), func() error {
		calls++
		return nil
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
