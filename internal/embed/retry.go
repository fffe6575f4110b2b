package embed

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy recovers from provider rate limiting with a bounded number
// of fixed-delay retries. Any error other than ErrRateLimited propagates
// immediately and un-retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts (initial call included).
	MaxAttempts int

	// Cooldown is the fixed delay before each retry.
	Cooldown time.Duration
}

// DefaultRetryPolicy returns the rate-limit policy: one retry after a
// fixed 60s cooldown.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 2,
		Cooldown:    RateLimitCooldown,
	}
}

// Do executes fn under the policy. Sleeping respects context cancellation.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return err
		}
		lastErr = err

		if attempt >= p.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Cooldown):
		}
	}

	return fmt.Errorf("rate limit persisted after %d attempts: %w", p.MaxAttempts, lastErr)
}
