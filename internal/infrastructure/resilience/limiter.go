package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// LimiterConfig tunes the per-integration token buckets.
type LimiterConfig struct {
	// PerSecond is the token refill rate
	PerSecond float64
	// Burst is the bucket capacity
	Burst int
	// AcquireTimeout bounds how long a caller blocks for a token
	AcquireTimeout time.Duration
}

// LimiterSet hands out one token bucket per integration. Acquire blocks
// cooperatively until a token is available or the acquire timeout elapses.
type LimiterSet struct {
	mu       sync.Mutex
	cfg      LimiterConfig
	limiters map[uuid.UUID]*rate.Limiter
}

// NewLimiterSet creates a LimiterSet.
func NewLimiterSet(cfg LimiterConfig) *LimiterSet {
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 30 * time.Second
	}
	return &LimiterSet{
		cfg:      cfg,
		limiters: make(map[uuid.UUID]*rate.Limiter),
	}
}

// limiter returns the bucket for an integration, creating it full on first use.
func (s *LimiterSet) limiter(integrationID uuid.UUID) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.limiters[integrationID]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.cfg.PerSecond), s.cfg.Burst)
		s.limiters[integrationID] = l
	}
	return l
}

// Acquire blocks until a token is available for the integration. It returns
// a RATE_LIMITED failure when the acquire timeout elapses first, and the
// context error when the caller is cancelled.
func (s *LimiterSet) Acquire(ctx context.Context, integrationID uuid.UUID, platform integration.PlatformCode) error {
	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.AcquireTimeout)
	defer cancel()

	if err := s.limiter(integrationID).Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return integration.NewRateLimitedFailure(platform, "local rate limit acquire timed out", 0)
	}
	return nil
}
