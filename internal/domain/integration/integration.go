package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// HealthState
// ---------------------------------------------------------------------------

// HealthState summarizes the recent call outcomes of one integration.
type HealthState string

const (
	// HealthStateHealthy indicates calls are succeeding
	HealthStateHealthy HealthState = "HEALTHY"
	// HealthStateDegraded indicates intermittent failures below the breaker threshold
	HealthStateDegraded HealthState = "DEGRADED"
	// HealthStateDown indicates the circuit for this integration is open
	HealthStateDown HealthState = "DOWN"
	// HealthStateUnknown indicates no calls have been made yet
	HealthStateUnknown HealthState = "UNKNOWN"
)

// IsValid returns true if the health state is known.
func (s HealthState) IsValid() bool {
	switch s {
	case HealthStateHealthy, HealthStateDegraded, HealthStateDown, HealthStateUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of HealthState.
func (s HealthState) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// Integration Entity
// ---------------------------------------------------------------------------

// Integration is one configured connection between the store and an external
// platform. Credentials are held by the vault, never on the entity.
type Integration struct {
	// ID is the unique identifier of this integration
	ID uuid.UUID
	// Platform identifies the external platform
	Platform PlatformCode
	// Category groups the platform by business function
	Category Category
	// Name is the merchant-facing label for this connection
	Name string
	// Enabled gates all sync and webhook traffic for this integration
	Enabled bool
	// Sandbox indicates the integration targets the platform test environment
	Sandbox bool
	// HasCredentials indicates the vault holds a credential set
	HasCredentials bool
	// Health is the last computed health state
	Health HealthState
	// LastSyncAt is when a sync run last touched this integration
	LastSyncAt *time.Time
	// CreatedAt is when this integration was created
	CreatedAt time.Time
	// UpdatedAt is when this integration was last updated
	UpdatedAt time.Time
	// DeletedAt marks a soft-deleted integration
	DeletedAt *time.Time
}

// NewIntegration creates a new disabled integration. It becomes usable once
// credentials are stored and it is enabled.
func NewIntegration(platform PlatformCode, category Category, name string) (*Integration, error) {
	if !platform.IsValid() {
		return nil, ErrInvalidPlatformCode
	}
	if !category.IsValid() {
		return nil, ErrInvalidCategory
	}
	if name == "" {
		name = platform.DisplayName()
	}

	now := time.Now()
	return &Integration{
		ID:        uuid.New(),
		Platform:  platform,
		Category:  category,
		Name:      name,
		Enabled:   false,
		Health:    HealthStateUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Usable reports whether the integration may participate in sync runs.
func (i *Integration) Usable() bool {
	return i.Enabled && i.HasCredentials && i.DeletedAt == nil
}

// Enable marks the integration active. Fails without stored credentials.
func (i *Integration) Enable() error {
	if !i.HasCredentials {
		return ErrCredentialsNotFound
	}
	i.Enabled = true
	i.UpdatedAt = time.Now()
	return nil
}

// Disable marks the integration inactive.
func (i *Integration) Disable() {
	i.Enabled = false
	i.UpdatedAt = time.Now()
}

// MarkCredentialsStored records that the vault now holds credentials.
func (i *Integration) MarkCredentialsStored(sandbox bool) {
	i.HasCredentials = true
	i.Sandbox = sandbox
	i.UpdatedAt = time.Now()
}

// MarkSynced records the completion time of a sync run.
func (i *Integration) MarkSynced(at time.Time) {
	i.LastSyncAt = &at
	i.UpdatedAt = time.Now()
}

// SetHealth updates the computed health state.
func (i *Integration) SetHealth(state HealthState) {
	if !state.IsValid() {
		return
	}
	i.Health = state
	i.UpdatedAt = time.Now()
}

// SoftDelete marks the integration deleted and disables it.
func (i *Integration) SoftDelete() {
	now := time.Now()
	i.Enabled = false
	i.DeletedAt = &now
	i.UpdatedAt = now
}

// ---------------------------------------------------------------------------
// IntegrationRepository
// ---------------------------------------------------------------------------

// IntegrationFilter defines filter criteria for listing integrations.
type IntegrationFilter struct {
	// Platform filters by platform code (optional)
	Platform *PlatformCode
	// Category filters by platform category (optional)
	Category *Category
	// Enabled filters by enabled flag (optional)
	Enabled *bool
}

// IntegrationRepository defines the persistence interface for integrations.
// Soft-deleted rows are excluded from every read.
type IntegrationRepository interface {
	// Save creates or updates an integration
	Save(ctx context.Context, integration *Integration) error

	// FindByID finds an integration by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)

	// FindByPlatform finds the integration configured for a platform
	FindByPlatform(ctx context.Context, platform PlatformCode) (*Integration, error)

	// FindAll lists integrations matching the filter
	FindAll(ctx context.Context, filter IntegrationFilter) ([]Integration, error)

	// FindUsable lists enabled integrations holding credentials
	FindUsable(ctx context.Context) ([]Integration, error)
}
