package resilience

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pazarsync/backend/internal/domain/integration"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestBreaker(cfg BreakerConfig) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
	b := NewBreaker(cfg)
	b.now = clock.now
	return b, clock
}

func TestBreaker_StartsClosed(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 3, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})

	assert.Equal(t, integration.BreakerClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_OpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 3, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})

	b.OnFailure(integration.FailureTransientNetwork)
	b.OnFailure(integration.FailureTransientNetwork)
	assert.Equal(t, integration.BreakerClosed, b.State())
	assert.True(t, b.Allow())

	b.OnFailure(integration.FailureTransientNetwork)
	assert.Equal(t, integration.BreakerOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 2, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})

	b.OnFailure(integration.FailureTransientNetwork)
	b.OnSuccess()
	b.OnFailure(integration.FailureTransientNetwork)

	assert.Equal(t, integration.BreakerClosed, b.State())
}

func TestBreaker_ValidationFailuresNeverCount(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 2, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})

	for i := 0; i < 10; i++ {
		b.OnFailure(integration.FailureRemoteValidation)
	}

	assert.Equal(t, integration.BreakerClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_AdmitsSingleProbeAfterDelay(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})

	b.OnFailure(integration.FailureTransientNetwork)
	require.Equal(t, integration.BreakerOpen, b.State())

	clock.advance(30 * time.Second)
	assert.False(t, b.Allow(), "probe before the delay elapsed")

	clock.advance(30 * time.Second)
	assert.True(t, b.Allow(), "probe at the delay")
	assert.Equal(t, integration.BreakerHalfOpen, b.State())
	assert.False(t, b.Allow(), "second caller during a probe")
}

func TestBreaker_SuccessfulProbeCloses(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})

	b.OnFailure(integration.FailureTransientNetwork)
	clock.advance(time.Minute)
	require.True(t, b.Allow())

	b.OnSuccess()
	assert.Equal(t, integration.BreakerClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreaker_FailedProbeDoublesBackoff(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})

	b.OnFailure(integration.FailureTransientNetwork)
	clock.advance(time.Minute)
	require.True(t, b.Allow())
	b.OnFailure(integration.FailureTransientNetwork)
	require.Equal(t, integration.BreakerOpen, b.State())

	// Second probe waits two minutes now
	clock.advance(time.Minute)
	assert.False(t, b.Allow())
	clock.advance(time.Minute)
	assert.True(t, b.Allow())

	b.OnFailure(integration.FailureTransientNetwork)
	clock.advance(2 * time.Minute)
	assert.False(t, b.Allow(), "third probe needs four minutes")
	clock.advance(2 * time.Minute)
	assert.True(t, b.Allow())
}

func TestBreaker_BackoffCappedAtMaxDelay(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 3 * time.Minute})

	b.OnFailure(integration.FailureTransientNetwork)
	for i := 0; i < 5; i++ {
		clock.advance(3 * time.Minute)
		require.True(t, b.Allow())
		b.OnFailure(integration.FailureTransientNetwork)
	}

	clock.advance(3 * time.Minute)
	assert.True(t, b.Allow(), "probe delay never exceeds the cap")
}

func TestBreaker_NonCountingResultClosesHalfOpen(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})

	b.OnFailure(integration.FailureTransientNetwork)
	clock.advance(time.Minute)
	require.True(t, b.Allow())

	// The remote answered, even if it rejected the payload
	b.OnFailure(integration.FailureRemoteValidation)
	assert.Equal(t, integration.BreakerClosed, b.State())
}

func TestBreaker_CancelProbeReopens(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})

	b.OnFailure(integration.FailureTransientNetwork)
	clock.advance(time.Minute)
	require.True(t, b.Allow())

	b.CancelProbe()
	assert.Equal(t, integration.BreakerOpen, b.State())

	// The probe slot is free again without waiting for another delay
	assert.True(t, b.Allow())
}

func TestBreaker_SnapshotCarriesState(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})
	id := uuid.New()

	b.OnFailure(integration.FailureTransientNetwork)
	record := b.Snapshot(id)

	assert.Equal(t, id, record.IntegrationID)
	assert.Equal(t, integration.BreakerOpen, record.State)
	assert.Equal(t, 1, record.ConsecutiveFailures)
	require.NotNil(t, record.OpenedAt)
	require.NotNil(t, record.ProbeAt)
	assert.Equal(t, clock.now().Add(time.Minute), *record.ProbeAt)
}

func TestBreaker_RestoreOpenSurvivesRestart(t *testing.T) {
	b, clock := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})
	b.OnFailure(integration.FailureTransientNetwork)
	record := b.Snapshot(uuid.New())

	restored, clock2 := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})
	clock2.t = clock.t
	restored.Restore(record)

	assert.Equal(t, integration.BreakerOpen, restored.State())
	assert.False(t, restored.Allow())
	clock2.advance(time.Minute)
	assert.True(t, restored.Allow())
}

func TestBreaker_RestoreHalfOpenBecomesOpen(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	record := &integration.BreakerRecord{
		IntegrationID: uuid.New(),
		State:         integration.BreakerHalfOpen,
		BackoffLevel:  1,
		UpdatedAt:     now,
	}

	b, _ := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})
	b.Restore(record)

	assert.Equal(t, integration.BreakerOpen, b.State())
}

func TestBreaker_RestoreIgnoresInvalidState(t *testing.T) {
	b, _ := newTestBreaker(BreakerConfig{Threshold: 1, ProbeDelay: time.Minute, MaxDelay: 10 * time.Minute})

	b.Restore(&integration.BreakerRecord{State: integration.BreakerState("BROKEN")})

	assert.Equal(t, integration.BreakerClosed, b.State())
}
