package client

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// retryRateLimited runs fn until it succeeds, fails with a non-retryable
// error, or maxAttempts attempts have hit the rate limit. The wait before
// each retry happens inside fn through the rate limit tracker.
func retryRateLimited(ctx context.Context, maxAttempts int, logger zerolog.Logger, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after rate limit wait")
			}
			return nil
		}

		lastErr = err

		if !shouldRetry(err) {
			return err
		}

		if attempt >= maxAttempts {
			break
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctxErr)
		}

		retriesTotal.Inc()
		logger.Warn().
			Int("attempt", attempt).
			Msg("Rate limited, retrying after reset")
	}

	retryExhaustedTotal.Inc()
	logger.Error().
		Int("max_attempts", maxAttempts).
		Msg("Rate limit retries exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRateLimitExhausted, maxAttempts, lastErr)
}
