package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// BreakerState
// ---------------------------------------------------------------------------

// BreakerState is the circuit state for one integration.
type BreakerState string

const (
	// BreakerClosed lets calls through and counts consecutive failures
	BreakerClosed BreakerState = "CLOSED"
	// BreakerOpen rejects calls until the next probe time
	BreakerOpen BreakerState = "OPEN"
	// BreakerHalfOpen lets exactly one probe call through
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// IsValid returns true if the breaker state is known.
func (s BreakerState) IsValid() bool {
	switch s {
	case BreakerClosed, BreakerOpen, BreakerHalfOpen:
		return true
	default:
		return false
	}
}

// String returns the string representation of BreakerState.
func (s BreakerState) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// BreakerRecord
// ---------------------------------------------------------------------------

// BreakerRecord is the durable snapshot of one integration's circuit. The
// live breaker works in memory; records exist so an open circuit survives a
// restart instead of resetting to closed.
type BreakerRecord struct {
	// IntegrationID is the integration this circuit guards
	IntegrationID uuid.UUID
	// State is the circuit state at snapshot time
	State BreakerState
	// ConsecutiveFailures is the failure count while closed
	ConsecutiveFailures int
	// BackoffLevel is the number of consecutive failed probes
	BackoffLevel int
	// OpenedAt is when the circuit last opened
	OpenedAt *time.Time
	// ProbeAt is when the next half-open probe is allowed
	ProbeAt *time.Time
	// UpdatedAt is when the snapshot was taken
	UpdatedAt time.Time
}

// BreakerStateRepository defines the persistence interface for circuit
// snapshots.
type BreakerStateRepository interface {
	// Save upserts the snapshot for an integration
	Save(ctx context.Context, record *BreakerRecord) error

	// FindByIntegration finds the snapshot for an integration
	FindByIntegration(ctx context.Context, integrationID uuid.UUID) (*BreakerRecord, error)

	// FindAll lists all snapshots
	FindAll(ctx context.Context) ([]BreakerRecord, error)
}
