package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// HealthReport is the rolled-up health view of one integration.
type HealthReport struct {
	IntegrationID  uuid.UUID                `json:"integration_id"`
	Platform       integration.PlatformCode `json:"platform"`
	Health         integration.HealthState  `json:"health"`
	BreakerState   integration.BreakerState `json:"breaker_state"`
	RecentOutcomes int                      `json:"recent_outcomes"`
	RecentFailures int                      `json:"recent_failures"`
	LastSyncAt     *time.Time               `json:"last_sync_at,omitempty"`
}

// ConnectionTestResult is the outcome of a connection probe.
type ConnectionTestResult struct {
	IntegrationID uuid.UUID                `json:"integration_id"`
	Platform      integration.PlatformCode `json:"platform"`
	OK            bool                     `json:"ok"`
	Message       string                   `json:"message,omitempty"`
	FailureKind   integration.FailureKind  `json:"failure_kind,omitempty"`
	Latency       time.Duration            `json:"latency_ms"`
}
