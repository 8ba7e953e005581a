package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pazarsync/backend/internal/domain/integration"
)

// IntegrationModel is the persistence model for the Integration domain entity.
type IntegrationModel struct {
	ID             uuid.UUID                `gorm:"type:uuid;primary_key"`
	Platform       integration.PlatformCode `gorm:"type:varchar(20);not null;uniqueIndex:idx_integrations_platform"`
	Category       integration.Category     `gorm:"type:varchar(20);not null;index"`
	Name           string                   `gorm:"type:varchar(255);not null"`
	Enabled        bool                     `gorm:"not null;default:false"`
	Sandbox        bool                     `gorm:"not null;default:false"`
	HasCredentials bool                     `gorm:"not null;default:false"`
	Health         integration.HealthState  `gorm:"type:varchar(20);not null;default:'UNKNOWN'"`
	LastSyncAt     *time.Time
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
	DeletedAt      *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration entity.
func (m *IntegrationModel) ToDomain() *integration.Integration {
	return &integration.Integration{
		ID:             m.ID,
		Platform:       m.Platform,
		Category:       m.Category,
		Name:           m.Name,
		Enabled:        m.Enabled,
		Sandbox:        m.Sandbox,
		HasCredentials: m.HasCredentials,
		Health:         m.Health,
		LastSyncAt:     m.LastSyncAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		DeletedAt:      m.DeletedAt,
	}
}

// FromDomain populates the persistence model from a domain Integration entity.
func (m *IntegrationModel) FromDomain(i *integration.Integration) {
	m.ID = i.ID
	m.Platform = i.Platform
	m.Category = i.Category
	m.Name = i.Name
	m.Enabled = i.Enabled
	m.Sandbox = i.Sandbox
	m.HasCredentials = i.HasCredentials
	m.Health = i.Health
	m.LastSyncAt = i.LastSyncAt
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
	m.DeletedAt = i.DeletedAt
}

// IntegrationCredentialModel stores one encrypted credential set per
// integration. The ciphertext holds the AES-GCM sealed field map; plaintext
// never reaches this table.
type IntegrationCredentialModel struct {
	IntegrationID uuid.UUID                `gorm:"type:uuid;primary_key"`
	Platform      integration.PlatformCode `gorm:"type:varchar(20);not null"`
	Ciphertext    []byte                   `gorm:"type:bytea;not null"`
	Sandbox       bool                     `gorm:"not null;default:false"`
	CreatedAt     time.Time                `gorm:"not null"`
	UpdatedAt     time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationCredentialModel) TableName() string {
	return "integration_credentials"
}

// MappingRecordModel is the persistence model for the MappingRecord domain
// entity. The unique index enforces at most one record per (internal entity,
// integration) pair.
type MappingRecordModel struct {
	ID               uuid.UUID              `gorm:"type:uuid;primary_key"`
	InternalEntityID uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_records_pair,priority:1"`
	IntegrationID    uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_records_pair,priority:2;index:idx_mapping_records_integration"`
	EntityType       integration.EntityType `gorm:"type:varchar(20);not null"`
	ExternalID       string                 `gorm:"type:varchar(100);index:idx_mapping_records_external"`
	SyncState        integration.SyncState  `gorm:"type:varchar(10);not null;default:'PENDING';index:idx_mapping_records_state"`
	LastPayloadHash  string                 `gorm:"type:varchar(64)"`
	LastSyncedAt     *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MappingRecordModel) TableName() string {
	return "mapping_records"
}

// ToDomain converts the persistence model to a domain MappingRecord entity.
func (m *MappingRecordModel) ToDomain() *integration.MappingRecord {
	return &integration.MappingRecord{
		ID:               m.ID,
		InternalEntityID: m.InternalEntityID,
		IntegrationID:    m.IntegrationID,
		EntityType:       m.EntityType,
		ExternalID:       m.ExternalID,
		SyncState:        m.SyncState,
		LastPayloadHash:  m.LastPayloadHash,
		LastSyncedAt:     m.LastSyncedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain MappingRecord entity.
func (m *MappingRecordModel) FromDomain(r *integration.MappingRecord) {
	m.ID = r.ID
	m.InternalEntityID = r.InternalEntityID
	m.IntegrationID = r.IntegrationID
	m.EntityType = r.EntityType
	m.ExternalID = r.ExternalID
	m.SyncState = r.SyncState
	m.LastPayloadHash = r.LastPayloadHash
	m.LastSyncedAt = r.LastSyncedAt
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
}

// SyncJobModel is the persistence model for the SyncJob domain entity.
type SyncJobModel struct {
	ID         uuid.UUID                 `gorm:"type:uuid;primary_key"`
	EntityType integration.EntityType    `gorm:"type:varchar(20);not null"`
	ScopeJSON  string                    `gorm:"type:jsonb;column:scope"`
	Status     integration.SyncJobStatus `gorm:"type:varchar(20);not null;index"`
	Total      int                       `gorm:"not null;default:0"`
	Succeeded  int                       `gorm:"not null;default:0"`
	Failed     int                       `gorm:"not null;default:0"`
	Skipped    int                       `gorm:"not null;default:0"`
	Error      string                    `gorm:"type:text"`
	CreatedAt  time.Time                 `gorm:"not null;index"`
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain SyncJob entity.
func (m *SyncJobModel) ToDomain() *integration.SyncJob {
	job := &integration.SyncJob{
		ID:         m.ID,
		EntityType: m.EntityType,
		Status:     m.Status,
		Total:      m.Total,
		Succeeded:  m.Succeeded,
		Failed:     m.Failed,
		Skipped:    m.Skipped,
		Error:      m.Error,
		CreatedAt:  m.CreatedAt,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
	}
	if m.ScopeJSON != "" {
		var scope integration.SyncScope
		if err := json.Unmarshal([]byte(m.ScopeJSON), &scope); err == nil {
			job.Scope = scope
		}
	}
	return job
}

// FromDomain populates the persistence model from a domain SyncJob entity.
func (m *SyncJobModel) FromDomain(j *integration.SyncJob) {
	m.ID = j.ID
	m.EntityType = j.EntityType
	m.Status = j.Status
	m.Total = j.Total
	m.Succeeded = j.Succeeded
	m.Failed = j.Failed
	m.Skipped = j.Skipped
	m.Error = j.Error
	m.CreatedAt = j.CreatedAt
	m.StartedAt = j.StartedAt
	m.FinishedAt = j.FinishedAt

	if jsonBytes, err := json.Marshal(j.Scope); err == nil {
		m.ScopeJSON = string(jsonBytes)
	} else {
		m.ScopeJSON = "{}"
	}
}

// SyncLogModel is the persistence model for the SyncLogEntry domain entity.
type SyncLogModel struct {
	ID               uuid.UUID               `gorm:"type:uuid;primary_key"`
	JobID            uuid.UUID               `gorm:"type:uuid;not null;index:idx_sync_logs_job"`
	IntegrationID    uuid.UUID               `gorm:"type:uuid;not null;index:idx_sync_logs_integration"`
	InternalEntityID uuid.UUID               `gorm:"type:uuid;not null"`
	EntityType       integration.EntityType  `gorm:"type:varchar(20);not null"`
	Outcome          integration.SyncOutcome `gorm:"type:varchar(20);not null"`
	FailureKind      integration.FailureKind `gorm:"type:varchar(30)"`
	Message          string                  `gorm:"type:text"`
	Attempts         int                     `gorm:"not null;default:0"`
	DurationMs       int64                   `gorm:"not null;default:0"`
	CreatedAt        time.Time               `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLogEntry entity.
func (m *SyncLogModel) ToDomain() *integration.SyncLogEntry {
	return &integration.SyncLogEntry{
		ID:               m.ID,
		JobID:            m.JobID,
		IntegrationID:    m.IntegrationID,
		InternalEntityID: m.InternalEntityID,
		EntityType:       m.EntityType,
		Outcome:          m.Outcome,
		FailureKind:      m.FailureKind,
		Message:          m.Message,
		Attempts:         m.Attempts,
		Duration:         time.Duration(m.DurationMs) * time.Millisecond,
		CreatedAt:        m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncLogEntry entity.
func (m *SyncLogModel) FromDomain(e *integration.SyncLogEntry) {
	m.ID = e.ID
	m.JobID = e.JobID
	m.IntegrationID = e.IntegrationID
	m.InternalEntityID = e.InternalEntityID
	m.EntityType = e.EntityType
	m.Outcome = e.Outcome
	m.FailureKind = e.FailureKind
	m.Message = e.Message
	m.Attempts = e.Attempts
	m.DurationMs = e.Duration.Milliseconds()
	m.CreatedAt = e.CreatedAt
}

// BreakerStateModel is the persistence model for circuit breaker snapshots.
type BreakerStateModel struct {
	IntegrationID       uuid.UUID                `gorm:"type:uuid;primary_key"`
	State               integration.BreakerState `gorm:"type:varchar(20);not null"`
	ConsecutiveFailures int                      `gorm:"not null;default:0"`
	BackoffLevel        int                      `gorm:"not null;default:0"`
	OpenedAt            *time.Time
	ProbeAt             *time.Time
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BreakerStateModel) TableName() string {
	return "breaker_states"
}

// ToDomain converts the persistence model to a domain BreakerRecord.
func (m *BreakerStateModel) ToDomain() *integration.BreakerRecord {
	return &integration.BreakerRecord{
		IntegrationID:       m.IntegrationID,
		State:               m.State,
		ConsecutiveFailures: m.ConsecutiveFailures,
		BackoffLevel:        m.BackoffLevel,
		OpenedAt:            m.OpenedAt,
		ProbeAt:             m.ProbeAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain BreakerRecord.
func (m *BreakerStateModel) FromDomain(r *integration.BreakerRecord) {
	m.IntegrationID = r.IntegrationID
	m.State = r.State
	m.ConsecutiveFailures = r.ConsecutiveFailures
	m.BackoffLevel = r.BackoffLevel
	m.OpenedAt = r.OpenedAt
	m.ProbeAt = r.ProbeAt
	m.UpdatedAt = r.UpdatedAt
}

// WebhookEventModel is the persistence model for the WebhookEvent domain
// entity. The unique index on (integration, event ID) is the durable
// idempotency guarantee behind the fast Redis dedup check.
type WebhookEventModel struct {
	ID            uuid.UUID                    `gorm:"type:uuid;primary_key"`
	IntegrationID uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_webhook_events_dedup,priority:1"`
	Platform      integration.PlatformCode     `gorm:"type:varchar(20);not null"`
	EventID       string                       `gorm:"type:varchar(100);not null;uniqueIndex:idx_webhook_events_dedup,priority:2"`
	EventType     integration.WebhookEventType `gorm:"type:varchar(30);not null"`
	Payload       []byte                       `gorm:"type:bytea"`
	ReceivedAt    time.Time                    `gorm:"not null;index"`
	ProcessedAt   *time.Time                   `gorm:"index"`
	Attempts      int                          `gorm:"not null;default:0"`
	LastError     string                       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent entity.
func (m *WebhookEventModel) ToDomain() *integration.WebhookEvent {
	return &integration.WebhookEvent{
		ID:            m.ID,
		IntegrationID: m.IntegrationID,
		Platform:      m.Platform,
		EventID:       m.EventID,
		EventType:     m.EventType,
		Payload:       m.Payload,
		ReceivedAt:    m.ReceivedAt,
		ProcessedAt:   m.ProcessedAt,
		Attempts:      m.Attempts,
		LastError:     m.LastError,
	}
}

// FromDomain populates the persistence model from a domain WebhookEvent entity.
func (m *WebhookEventModel) FromDomain(e *integration.WebhookEvent) {
	m.ID = e.ID
	m.IntegrationID = e.IntegrationID
	m.Platform = e.Platform
	m.EventID = e.EventID
	m.EventType = e.EventType
	m.Payload = e.Payload
	m.ReceivedAt = e.ReceivedAt
	m.ProcessedAt = e.ProcessedAt
	m.Attempts = e.Attempts
	m.LastError = e.LastError
}
