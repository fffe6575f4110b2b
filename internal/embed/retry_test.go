package embed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 2, Cooldown: time.Millisecond}
}

func TestRetryPolicy_SuccessFirstAttempt(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_RateLimitThenSuccess(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		if calls == 1 {
			return fmt.Errorf("chunk 3: %w", ErrRateLimited)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryPolicy_RateLimitTwicePropagates(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return ErrRateLimited
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls, "exactly one retry")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestRetryPolicy_OtherErrorNotRetried(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ContextCancelledDuringCooldown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := RetryPolicy{MaxAttempts: 2, Cooldown: time.Hour}
	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func() error { return ErrRateLimited })
	}()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after context cancellation")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		rateLimited bool
	}{
		{"openai style", errors.New("Rate limit reached for requests"), true},
		{"snake case", errors.New("error: rate_limit_exceeded"), true},
		{"status code", errors.New("API returned unexpected status code: 429"), true},
		{"timeout", errors.New("context deadline exceeded"), false},
		{"server error", errors.New("status code: 500"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.rateLimited, errors.Is(got, ErrRateLimited))
		})
	}
}

func TestNewOpenAIEmbedder_NoAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{Model: "text-embedding-3-small"})
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
