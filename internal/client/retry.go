package client

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryConfig configures the SendPrompt retry loop.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, first attempt included.
	MaxAttempts int
	// BaseDelay is the first backoff; it doubles each attempt.
	BaseDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
}

// DefaultRetryConfig returns the retry defaults: three attempts with a
// 2s/4s backoff plus jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    16 * time.Second,
	}
}

// withRetry runs fn up to cfg.MaxAttempts times. Only errors accepted by
// retryable are retried; anything else propagates immediately. reset runs
// between attempts (a page reload, in practice). Exhaustion wraps the last
// cause in ErrMaxRetriesExceeded.
func withRetry(
	ctx context.Context,
	cfg RetryConfig,
	logger *zap.Logger,
	op string,
	retryable func(error) bool,
	reset func(context.Context) error,
	fn func(context.Context) (string, error),
) (string, error) {
	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("retry succeeded",
					zap.String("op", op),
					zap.Int("attempt", attempt+1))
			}
			return result, nil
		}
		if !retryable(err) {
			return "", err
		}

		lastErr = err
		logger.Warn("attempt failed",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Error(err))

		if attempt < cfg.MaxAttempts-1 {
			backoff := backoffFor(cfg, attempt)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			if reset != nil {
				if rerr := reset(ctx); rerr != nil {
					logger.Warn("reset between attempts failed",
						zap.String("op", op), zap.Error(rerr))
				}
			}
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %v", ErrMaxRetriesExceeded, cfg.MaxAttempts, lastErr)
}

// backoffFor computes base * 2^attempt capped at MaxDelay, plus up to half
// the base delay of jitter so concurrent clients do not retry in lockstep.
func backoffFor(cfg RetryConfig, attempt int) time.Duration {
	backoff := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
	if backoff > float64(cfg.MaxDelay) {
		backoff = float64(cfg.MaxDelay)
	}
	jitter := int64(cfg.BaseDelay / 2)
	if jitter > 0 {
		backoff += float64(rand.Int63n(jitter))
	}
	return time.Duration(backoff)
}
