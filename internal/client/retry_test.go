package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errFlaky = errors.New("flaky")

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Millisecond, MaxDelay: 8 * time.Millisecond}
}

func isFlaky(err error) bool { return errors.Is(err, errFlaky) }

func TestWithRetryFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	result, err := withRetry(context.Background(), fastRetry(), zap.NewNop(), "op", isFlaky, nil,
		func(context.Context) (string, error) {
			calls++
			return "ok", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversAfterFailures(t *testing.T) {
	calls, resets := 0, 0
	reset := func(context.Context) error {
		resets++
		return nil
	}
	result, err := withRetry(context.Background(), fastRetry(), zap.NewNop(), "op", isFlaky, reset,
		func(context.Context) (string, error) {
			calls++
			if calls < 3 {
				return "", errFlaky
			}
			return "eventually", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "eventually", result)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, resets, "reset runs between attempts, not after the last")
}

func TestWithRetryExhaustion(t *testing.T) {
	calls := 0
	_, err := withRetry(context.Background(), fastRetry(), zap.NewNop(), "op", isFlaky, nil,
		func(context.Context) (string, error) {
			calls++
			return "", errFlaky
		})
	require.ErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Contains(t, err.Error(), "flaky")
	assert.Equal(t, 3, calls)
}

func TestWithRetryNonRetryablePropagates(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	_, err := withRetry(context.Background(), fastRetry(), zap.NewNop(), "op", isFlaky, nil,
		func(context.Context) (string, error) {
			calls++
			return "", fatal
		})
	require.ErrorIs(t, err, fatal)
	assert.NotErrorIs(t, err, ErrMaxRetriesExceeded)
	assert.Equal(t, 1, calls)
}

func TestWithRetryContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := withRetry(ctx, fastRetry(), zap.NewNop(), "op", isFlaky, nil,
		func(context.Context) (string, error) {
			calls++
			cancel()
			return "", errFlaky
		})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoffForDoublesAndCaps(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 2 * time.Second, MaxDelay: 5 * time.Second}
	jitter := cfg.BaseDelay / 2

	for attempt, want := range []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second} {
		got := backoffFor(cfg, attempt)
		assert.GreaterOrEqual(t, got, want, "attempt %d", attempt)
		assert.Less(t, got, want+jitter, "attempt %d", attempt)
	}
}
