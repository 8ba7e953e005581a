package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// EntityType
// ---------------------------------------------------------------------------

// EntityType names the kind of data a sync run moves.
type EntityType string

const (
	EntityTypeProduct EntityType = "product"
	EntityTypeStock   EntityType = "stock"
	EntityTypePrice   EntityType = "price"
	EntityTypeOrder   EntityType = "order"
)

// IsValid returns true if the entity type is known.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeProduct, EntityTypeStock, EntityTypePrice, EntityTypeOrder:
		return true
	default:
		return false
	}
}

// String returns the string representation of EntityType.
func (t EntityType) String() string {
	return string(t)
}

// capabilityFor maps an entity type to the capability its push requires.
var capabilityFor = map[EntityType]Capability{
	EntityTypeProduct: CapabilityUpsertProduct,
	EntityTypeStock:   CapabilityUpdateStock,
	EntityTypePrice:   CapabilityUpdatePrice,
	EntityTypeOrder:   CapabilityListOrders,
}

// RequiredCapability returns the connector capability a sync of this entity
// type depends on.
func (t EntityType) RequiredCapability() Capability {
	return capabilityFor[t]
}

// ---------------------------------------------------------------------------
// SyncJob
// ---------------------------------------------------------------------------

// SyncJobStatus is the lifecycle state of a sync job.
type SyncJobStatus string

const (
	SyncJobStatusPending   SyncJobStatus = "PENDING"
	SyncJobStatusRunning   SyncJobStatus = "RUNNING"
	SyncJobStatusCompleted SyncJobStatus = "COMPLETED"
	SyncJobStatusFailed    SyncJobStatus = "FAILED"
	SyncJobStatusCancelled SyncJobStatus = "CANCELLED"
)

// IsValid returns true if the job status is known.
func (s SyncJobStatus) IsValid() bool {
	switch s {
	case SyncJobStatusPending, SyncJobStatusRunning, SyncJobStatusCompleted,
		SyncJobStatusFailed, SyncJobStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncJobStatus.
func (s SyncJobStatus) String() string {
	return string(s)
}

// Terminal reports whether the status is final.
func (s SyncJobStatus) Terminal() bool {
	return s == SyncJobStatusCompleted || s == SyncJobStatusFailed || s == SyncJobStatusCancelled
}

// SyncScope selects which integrations and which internal entities a job
// covers. Empty slices mean all.
type SyncScope struct {
	// IntegrationIDs limits the run to specific integrations (optional)
	IntegrationIDs []uuid.UUID
	// InternalEntityIDs limits the run to specific entities (optional)
	InternalEntityIDs []uuid.UUID
	// Delta skips pairs whose payload hash is unchanged since the last push
	Delta bool
}

// SyncJob is one orchestrated run across integrations. It accumulates
// per-pair outcomes and carries the final tallies.
type SyncJob struct {
	// ID is the unique identifier of this job
	ID uuid.UUID
	// EntityType is the kind of data this run moves
	EntityType EntityType
	// Scope selects the integrations and entities covered
	Scope SyncScope
	// Status is the lifecycle state of the job
	Status SyncJobStatus
	// Total is the number of (entity, integration) pairs dispatched
	Total int
	// Succeeded counts pairs that completed successfully
	Succeeded int
	// Failed counts pairs that ended in a terminal failure
	Failed int
	// Skipped counts pairs skipped by delta hash or open circuit
	Skipped int
	// Error holds the job-level failure message, if any
	Error string
	// CreatedAt is when the job was accepted
	CreatedAt time.Time
	// StartedAt is when the run began executing
	StartedAt *time.Time
	// FinishedAt is when the run reached a terminal status
	FinishedAt *time.Time
}

// NewSyncJob creates a pending job for the given entity type and scope.
func NewSyncJob(entityType EntityType, scope SyncScope) (*SyncJob, error) {
	if !entityType.IsValid() {
		return nil, ErrInvalidEntityType
	}
	return &SyncJob{
		ID:         uuid.New(),
		EntityType: entityType,
		Scope:      scope,
		Status:     SyncJobStatusPending,
		CreatedAt:  time.Now(),
	}, nil
}

// Start marks the job running.
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = SyncJobStatusRunning
	j.StartedAt = &now
}

// Finish moves the job to its terminal status based on the tallies. A run
// where every pair failed is FAILED; anything else that ran to the end is
// COMPLETED, partial failures included.
func (j *SyncJob) Finish() {
	now := time.Now()
	j.FinishedAt = &now
	if j.Total > 0 && j.Failed == j.Total {
		j.Status = SyncJobStatusFailed
		return
	}
	j.Status = SyncJobStatusCompleted
}

// Cancel marks the job cancelled.
func (j *SyncJob) Cancel() {
	now := time.Now()
	j.Status = SyncJobStatusCancelled
	j.FinishedAt = &now
}

// ---------------------------------------------------------------------------
// SyncLogEntry
// ---------------------------------------------------------------------------

// SyncOutcome is the terminal result of one (entity, integration) pair.
type SyncOutcome string

const (
	SyncOutcomeSuccess SyncOutcome = "SUCCESS"
	SyncOutcomeFailed  SyncOutcome = "FAILED"
	SyncOutcomeSkipped SyncOutcome = "SKIPPED"
)

// IsValid returns true if the outcome is known.
func (o SyncOutcome) IsValid() bool {
	switch o {
	case SyncOutcomeSuccess, SyncOutcomeFailed, SyncOutcomeSkipped:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncOutcome.
func (o SyncOutcome) String() string {
	return string(o)
}

// SyncLogEntry records the terminal outcome of exactly one (entity,
// integration) pair within a job. A pair that is retried still produces a
// single entry, written when its outcome is final.
type SyncLogEntry struct {
	// ID is the unique identifier of this entry
	ID uuid.UUID
	// JobID is the sync job this entry belongs to
	JobID uuid.UUID
	// IntegrationID is the integration the pair targeted
	IntegrationID uuid.UUID
	// InternalEntityID is the entity the pair covered
	InternalEntityID uuid.UUID
	// EntityType is the kind of data moved
	EntityType EntityType
	// Outcome is the terminal result
	Outcome SyncOutcome
	// FailureKind classifies a failed outcome, empty otherwise
	FailureKind FailureKind
	// Message carries the failure or skip detail
	Message string
	// Attempts is how many remote calls the pair consumed
	Attempts int
	// Duration is the wall time the pair took
	Duration time.Duration
	// CreatedAt is when the outcome was recorded
	CreatedAt time.Time
}

// NewSyncLogEntry records the terminal outcome of one pair.
func NewSyncLogEntry(jobID, integrationID, internalEntityID uuid.UUID, entityType EntityType, outcome SyncOutcome) *SyncLogEntry {
	return &SyncLogEntry{
		ID:               uuid.New(),
		JobID:            jobID,
		IntegrationID:    integrationID,
		InternalEntityID: internalEntityID,
		EntityType:       entityType,
		Outcome:          outcome,
		CreatedAt:        time.Now(),
	}
}

// ---------------------------------------------------------------------------
// Repositories
// ---------------------------------------------------------------------------

// SyncJobRepository defines the persistence interface for sync jobs.
type SyncJobRepository interface {
	// Save creates or updates a job
	Save(ctx context.Context, job *SyncJob) error

	// FindByID finds a job by ID
	FindByID(ctx context.Context, id uuid.UUID) (*SyncJob, error)

	// FindRecent lists the most recent jobs, newest first
	FindRecent(ctx context.Context, limit int) ([]SyncJob, error)
}

// SyncLogRepository defines the persistence interface for sync log entries.
type SyncLogRepository interface {
	// Save persists one terminal entry
	Save(ctx context.Context, entry *SyncLogEntry) error

	// FindByJob lists the entries of one job
	FindByJob(ctx context.Context, jobID uuid.UUID) ([]SyncLogEntry, error)

	// FindByIntegration lists recent entries for one integration, newest first
	FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]SyncLogEntry, error)
}
