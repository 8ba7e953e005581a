package resilience

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// Config aggregates the resilience settings for the invoker.
type Config struct {
	Breaker BreakerConfig
	Limiter LimiterConfig
	Retry   RetryConfig
}

// Invoker wraps every outbound platform call with the circuit breaker, rate
// limiter, and retry policy. It is the single choke point between the sync
// orchestrator / webhook handlers and the connectors.
type Invoker struct {
	cfg    Config
	logger *zap.Logger

	limiters *LimiterSet

	mu       sync.Mutex
	breakers map[uuid.UUID]*Breaker
}

// NewInvoker creates an Invoker.
func NewInvoker(cfg Config, logger *zap.Logger) *Invoker {
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}
	return &Invoker{
		cfg:      cfg,
		logger:   logger,
		limiters: NewLimiterSet(cfg.Limiter),
		breakers: make(map[uuid.UUID]*Breaker),
	}
}

// breaker returns the circuit for an integration, creating it closed on
// first use.
func (inv *Invoker) breaker(integrationID uuid.UUID) *Breaker {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	b, ok := inv.breakers[integrationID]
	if !ok {
		b = NewBreaker(inv.cfg.Breaker)
		inv.breakers[integrationID] = b
	}
	return b
}

// BreakerState returns the circuit state for an integration.
func (inv *Invoker) BreakerState(integrationID uuid.UUID) integration.BreakerState {
	return inv.breaker(integrationID).State()
}

// Snapshots returns durable records for all live breakers.
func (inv *Invoker) Snapshots() []*integration.BreakerRecord {
	inv.mu.Lock()
	ids := make([]uuid.UUID, 0, len(inv.breakers))
	breakers := make([]*Breaker, 0, len(inv.breakers))
	for id, b := range inv.breakers {
		ids = append(ids, id)
		breakers = append(breakers, b)
	}
	inv.mu.Unlock()

	records := make([]*integration.BreakerRecord, len(breakers))
	for i, b := range breakers {
		records[i] = b.Snapshot(ids[i])
	}
	return records
}

// Restore loads persisted breaker records, typically at startup.
func (inv *Invoker) Restore(records []integration.BreakerRecord) {
	for i := range records {
		inv.breaker(records[i].IntegrationID).Restore(&records[i])
	}
}

// Do executes op against one integration under the full resilience policy.
// It returns the attempt count consumed alongside the terminal error.
//
// Per attempt the sequence is circuit check, rate limit token, remote call.
// Failures are classified by the taxonomy: transient network and rate
// limited errors are retried with jittered backoff (honoring a retry-after
// hint), an auth failure triggers one transparent token refresh when the
// connector supports it, everything else is terminal.
func (inv *Invoker) Do(ctx context.Context, intg *integration.Integration, conn integration.Connector, creds integration.CredentialHandle, op func(context.Context) error) (int, error) {
	b := inv.breaker(intg.ID)
	refreshed := false
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		if !b.Allow() {
			return attempts, integration.NewFailure(
				integration.FailureCircuitOpen, intg.Platform, "circuit open, call short-circuited")
		}

		if err := inv.limiters.Acquire(ctx, intg.ID, intg.Platform); err != nil {
			// The remote was never reached; free any probe slot and surface
			// the local failure without touching the circuit.
			b.CancelProbe()
			return attempts, err
		}

		attempts++
		err := op(ctx)
		if err == nil {
			b.OnSuccess()
			return attempts, nil
		}

		// Cancellation mid-call is the caller's doing, not the remote's
		if ctx.Err() != nil {
			b.CancelProbe()
			return attempts, ctx.Err()
		}

		kind := integration.KindOf(err)
		b.OnFailure(kind)

		inv.logger.Warn("platform call failed",
			zap.String("integration_id", intg.ID.String()),
			zap.String("platform", intg.Platform.String()),
			zap.String("failure_kind", kind.String()),
			zap.Int("attempt", attempts),
			zap.Error(err),
		)

		// One transparent token refresh per call for expiring-token platforms
		if kind == integration.FailureAuth && !refreshed {
			if refresher, ok := conn.(integration.OAuth2RefreshAuth); ok {
				refreshed = true
				if refreshErr := refresher.RefreshIfExpired(ctx, creds); refreshErr == nil {
					continue
				}
			}
			return attempts, err
		}

		if !shouldRetry(inv.cfg.Retry, attempts, kind) {
			return attempts, err
		}

		retryAfter, _ := integration.RetryAfterHint(err)
		delay := backoffDelay(inv.cfg.Retry, attempts, retryAfter)
		if sleepErr := sleepCtx(ctx, delay); sleepErr != nil {
			return attempts, sleepErr
		}
	}
}
