package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pazarsync/backend/internal/domain/integration"
)

func TestBackoffDelay_RetryAfterTakesPrecedence(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 10 * time.Second}

	assert.Equal(t, 5*time.Second, backoffDelay(cfg, 1, 5*time.Second))
}

func TestBackoffDelay_RetryAfterCappedAtMax(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 10 * time.Second}

	assert.Equal(t, 10*time.Second, backoffDelay(cfg, 1, time.Minute))
}

func TestBackoffDelay_JitterStaysWithinExponentialBound(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	for i := 0; i < 50; i++ {
		d := backoffDelay(cfg, 1, 0)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
	for i := 0; i < 50; i++ {
		d := backoffDelay(cfg, 3, 0)
		assert.LessOrEqual(t, d, 400*time.Millisecond)
	}
}

func TestBackoffDelay_ExponentCappedAtMax(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	for i := 0; i < 50; i++ {
		assert.LessOrEqual(t, backoffDelay(cfg, 9, 0), time.Second)
	}
}

func TestShouldRetry_OnlyRetryableKindsBelowMax(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3}

	assert.True(t, shouldRetry(cfg, 1, integration.FailureTransientNetwork))
	assert.True(t, shouldRetry(cfg, 2, integration.FailureRateLimited))
	assert.False(t, shouldRetry(cfg, 3, integration.FailureTransientNetwork))
	assert.False(t, shouldRetry(cfg, 1, integration.FailureAuth))
	assert.False(t, shouldRetry(cfg, 1, integration.FailureRemoteValidation))
	assert.False(t, shouldRetry(cfg, 1, integration.FailureCircuitOpen))
}

func TestSleepCtx_ZeroReturnsImmediately(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
}

func TestSleepCtx_CancelledReturnsContextError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepCtx(ctx, time.Minute), context.Canceled)
}
