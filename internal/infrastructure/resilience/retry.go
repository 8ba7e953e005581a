package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// RetryConfig tunes the retry policy.
type RetryConfig struct {
	// MaxAttempts is the total attempts per call, including the first
	MaxAttempts int
	// BaseDelay is the initial backoff
	BaseDelay time.Duration
	// MaxDelay caps the backoff
	MaxDelay time.Duration
}

// backoffDelay computes the full-jitter backoff for a retry. attempt is
// 1-based (the attempt that just failed). A positive retryAfter hint from
// the platform takes precedence over the computed backoff.
func backoffDelay(cfg RetryConfig, attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if retryAfter > cfg.MaxDelay {
			return cfg.MaxDelay
		}
		return retryAfter
	}

	delay := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			delay = cfg.MaxDelay
			break
		}
	}
	// Full jitter keeps a burst of failed pairs from retrying in lockstep
	return time.Duration(rand.Int63n(int64(delay) + 1))
}

// sleepCtx waits for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// shouldRetry decides whether a failed attempt gets another one.
func shouldRetry(cfg RetryConfig, attempt int, kind integration.FailureKind) bool {
	if attempt >= cfg.MaxAttempts {
		return false
	}
	return kind.Retryable()
}
