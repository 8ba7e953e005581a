// Package resilience guards every outbound platform call with a
// per-integration circuit breaker, token bucket rate limiter, and a retry
// policy driven by the failure taxonomy.
package resilience

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// BreakerConfig tunes one circuit breaker.
type BreakerConfig struct {
	// Threshold is the consecutive failure count that opens the circuit
	Threshold int
	// ProbeDelay is the wait before the first half-open probe
	ProbeDelay time.Duration
	// MaxDelay caps the probe backoff
	MaxDelay time.Duration
}

// Breaker is the circuit for one integration. While closed it counts
// consecutive counting failures; at the threshold it opens. After the probe
// delay one call is admitted half-open: success closes the circuit, failure
// reopens it with the probe delay doubled, up to MaxDelay.
type Breaker struct {
	mu  sync.Mutex
	cfg BreakerConfig

	state        integration.BreakerState
	failures     int
	backoffLevel int
	openedAt     time.Time
	probeAt      time.Time
	probing      bool

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.ProbeDelay <= 0 {
		cfg.ProbeDelay = 30 * time.Second
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Minute
	}
	return &Breaker{
		cfg:   cfg,
		state: integration.BreakerClosed,
		now:   time.Now,
	}
}

// Allow reports whether a call may proceed. In the open state it fails fast
// until the probe time, then admits exactly one half-open probe; concurrent
// callers during a probe are rejected.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case integration.BreakerClosed:
		return true
	case integration.BreakerOpen:
		if b.now().Before(b.probeAt) {
			return false
		}
		b.state = integration.BreakerHalfOpen
		b.probing = true
		return true
	case integration.BreakerHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	default:
		return false
	}
}

// OnSuccess records a successful call. A half-open success closes the
// circuit and resets the backoff.
func (b *Breaker) OnSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = integration.BreakerClosed
	b.failures = 0
	b.backoffLevel = 0
	b.probing = false
}

// OnFailure records a failed call. Kinds that don't count toward the circuit
// (remote validation rejections) leave the state untouched.
func (b *Breaker) OnFailure(kind integration.FailureKind) {
	if !kind.CountsTowardCircuit() {
		b.mu.Lock()
		b.probing = false
		// A non-counting half-open result still releases the probe slot; the
		// remote answered, so the circuit closes.
		if b.state == integration.BreakerHalfOpen {
			b.state = integration.BreakerClosed
			b.failures = 0
			b.backoffLevel = 0
		}
		b.mu.Unlock()
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case integration.BreakerClosed:
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.open()
		}
	case integration.BreakerHalfOpen:
		b.backoffLevel++
		b.open()
	}
	b.probing = false
}

// open transitions to the open state and schedules the next probe.
func (b *Breaker) open() {
	b.state = integration.BreakerOpen
	b.openedAt = b.now()
	b.probeAt = b.openedAt.Add(b.probeDelay())
}

// probeDelay returns the current backed-off probe delay.
func (b *Breaker) probeDelay() time.Duration {
	delay := b.cfg.ProbeDelay
	for i := 0; i < b.backoffLevel; i++ {
		delay *= 2
		if delay >= b.cfg.MaxDelay {
			return b.cfg.MaxDelay
		}
	}
	return delay
}

// CancelProbe releases a half-open probe slot without recording an outcome.
// Used when the call never reached the remote (local limiter timeout,
// cancellation).
func (b *Breaker) CancelProbe() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == integration.BreakerHalfOpen && b.probing {
		b.probing = false
		b.state = integration.BreakerOpen
	}
}

// State returns the current circuit state.
func (b *Breaker) State() integration.BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns a durable record of the breaker for an integration.
func (b *Breaker) Snapshot(integrationID uuid.UUID) *integration.BreakerRecord {
	b.mu.Lock()
	defer b.mu.Unlock()

	record := &integration.BreakerRecord{
		IntegrationID:       integrationID,
		State:               b.state,
		ConsecutiveFailures: b.failures,
		BackoffLevel:        b.backoffLevel,
		UpdatedAt:           b.now(),
	}
	if !b.openedAt.IsZero() {
		openedAt := b.openedAt
		record.OpenedAt = &openedAt
	}
	if !b.probeAt.IsZero() {
		probeAt := b.probeAt
		record.ProbeAt = &probeAt
	}
	return record
}

// Restore loads a persisted record, so an open circuit survives restart.
func (b *Breaker) Restore(record *integration.BreakerRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !record.State.IsValid() {
		return
	}
	b.state = record.State
	// A restart aborts any in-flight probe
	if b.state == integration.BreakerHalfOpen {
		b.state = integration.BreakerOpen
	}
	b.failures = record.ConsecutiveFailures
	b.backoffLevel = record.BackoffLevel
	b.probing = false
	if record.OpenedAt != nil {
		b.openedAt = *record.OpenedAt
	}
	if record.ProbeAt != nil {
		b.probeAt = *record.ProbeAt
	}
}
