package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// SyncState
// ---------------------------------------------------------------------------

// SyncState tracks the push state of a mapping. A pair whose last push failed
// stays in SyncStateError until a later push succeeds, which is how a delta
// run finds pairs to retry even when the internal entity did not change.
type SyncState string

const (
	SyncStatePending SyncState = "PENDING"
	SyncStateSynced  SyncState = "SYNCED"
	SyncStateError   SyncState = "ERROR"
)

// IsValid returns true if the sync state is known.
func (s SyncState) IsValid() bool {
	switch s {
	case SyncStatePending, SyncStateSynced, SyncStateError:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncState.
func (s SyncState) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// MappingRecord Entity
// ---------------------------------------------------------------------------

// MappingRecord links one internal entity to its identifier on one platform.
// At most one record exists per (internal entity, integration) pair, and the
// external ID never changes once bound; re-linking requires deleting the
// record and creating a new one.
type MappingRecord struct {
	// ID is the unique identifier of this mapping
	ID uuid.UUID
	// InternalEntityID is the identifier of the entity in our store
	InternalEntityID uuid.UUID
	// IntegrationID is the integration this mapping belongs to
	IntegrationID uuid.UUID
	// EntityType is the kind of entity being mapped
	EntityType EntityType
	// ExternalID is the identifier assigned by the platform, empty until bound
	ExternalID string
	// SyncState is the push state of this pair
	SyncState SyncState
	// LastPayloadHash is the content hash of the last successfully pushed payload
	LastPayloadHash string
	// LastSyncedAt is when this mapping last completed a successful push
	LastSyncedAt *time.Time
	// CreatedAt is when this mapping was created
	CreatedAt time.Time
	// UpdatedAt is when this mapping was last updated
	UpdatedAt time.Time
}

// NewMappingRecord creates an unbound mapping for an internal entity.
func NewMappingRecord(internalEntityID, integrationID uuid.UUID, entityType EntityType) (*MappingRecord, error) {
	if internalEntityID == uuid.Nil {
		return nil, ErrInvalidInternalEntity
	}
	if integrationID == uuid.Nil {
		return nil, ErrIntegrationNotFound
	}
	if !entityType.IsValid() {
		return nil, ErrInvalidEntityType
	}

	now := time.Now()
	return &MappingRecord{
		ID:               uuid.New(),
		InternalEntityID: internalEntityID,
		IntegrationID:    integrationID,
		EntityType:       entityType,
		SyncState:        SyncStatePending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// Bound reports whether the platform has assigned an external ID.
func (m *MappingRecord) Bound() bool {
	return m.ExternalID != ""
}

// BindExternal records the platform-assigned identifier. Binding is
// write-once: a second call with a different ID fails, a call with the same
// ID is a no-op.
func (m *MappingRecord) BindExternal(externalID string) error {
	if externalID == "" {
		return ErrMappingNotFound
	}
	if m.ExternalID != "" {
		if m.ExternalID == externalID {
			return nil
		}
		return ErrExternalIDImmutable
	}
	m.ExternalID = externalID
	m.UpdatedAt = time.Now()
	return nil
}

// MarkSynced records a successful push and the payload hash it carried.
func (m *MappingRecord) MarkSynced(payloadHash string, at time.Time) {
	m.SyncState = SyncStateSynced
	m.LastPayloadHash = payloadHash
	m.LastSyncedAt = &at
	m.UpdatedAt = time.Now()
}

// MarkError records a failed push. The hash and timestamp of the last
// successful push are kept.
func (m *MappingRecord) MarkError() {
	m.SyncState = SyncStateError
	m.UpdatedAt = time.Now()
}

// UpToDate reports whether the given payload hash matches the last successful
// push, in which case a sync skips the remote call entirely. A pair in error
// state is never up to date: the remote side does not hold the payload.
func (m *MappingRecord) UpToDate(payloadHash string) bool {
	return m.SyncState == SyncStateSynced &&
		m.LastPayloadHash != "" && m.LastPayloadHash == payloadHash
}

// ---------------------------------------------------------------------------
// MappingRepository
// ---------------------------------------------------------------------------

// MappingRepository defines the persistence interface for mapping records.
// The store enforces uniqueness of (internal entity, integration); Save of a
// second record for the same pair returns ErrMappingAlreadyExists.
type MappingRepository interface {
	// Save creates or updates a mapping record
	Save(ctx context.Context, record *MappingRecord) error

	// FindByID finds a mapping by ID
	FindByID(ctx context.Context, id uuid.UUID) (*MappingRecord, error)

	// FindByPair finds the mapping for an internal entity on one integration
	FindByPair(ctx context.Context, internalEntityID, integrationID uuid.UUID) (*MappingRecord, error)

	// FindByExternal finds the mapping holding an external ID on one integration
	FindByExternal(ctx context.Context, integrationID uuid.UUID, externalID string) (*MappingRecord, error)

	// FindByIntegration lists mappings of one entity type for an integration
	FindByIntegration(ctx context.Context, integrationID uuid.UUID, entityType EntityType) ([]MappingRecord, error)

	// FindFailed lists mappings of an integration whose last push failed
	FindFailed(ctx context.Context, integrationID uuid.UUID) ([]MappingRecord, error)

	// Delete removes a mapping record
	Delete(ctx context.Context, id uuid.UUID) error
}
