package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/infrastructure/persistence/models"
	"github.com/pazarsync/backend/internal/infrastructure/vault"
)

// GormCredentialRecordRepository implements vault.RecordStore using GORM.
// Rows hold only sealed ciphertext.
type GormCredentialRecordRepository struct {
	db *gorm.DB
}

// NewGormCredentialRecordRepository creates a new GormCredentialRecordRepository
func NewGormCredentialRecordRepository(db *gorm.DB) *GormCredentialRecordRepository {
	return &GormCredentialRecordRepository{db: db}
}

// Put upserts the record for an integration
func (r *GormCredentialRecordRepository) Put(ctx context.Context, record *vault.Record) error {
	model := models.IntegrationCredentialModel{
		IntegrationID: record.IntegrationID,
		Platform:      record.Platform,
		Ciphertext:    record.Ciphertext,
		Sandbox:       record.Sandbox,
		CreatedAt:     record.UpdatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "integration_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"platform", "ciphertext", "sandbox", "updated_at"}),
		}).
		Create(&model).Error
}

// Get returns the record for an integration
func (r *GormCredentialRecordRepository) Get(ctx context.Context, integrationID uuid.UUID) (*vault.Record, error) {
	var model models.IntegrationCredentialModel
	if err := r.db.WithContext(ctx).First(&model, "integration_id = ?", integrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrCredentialsNotFound
		}
		return nil, err
	}
	return &vault.Record{
		IntegrationID: model.IntegrationID,
		Platform:      model.Platform,
		Ciphertext:    model.Ciphertext,
		Sandbox:       model.Sandbox,
		UpdatedAt:     model.UpdatedAt,
	}, nil
}

// Delete removes the record for an integration
func (r *GormCredentialRecordRepository) Delete(ctx context.Context, integrationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.IntegrationCredentialModel{}, "integration_id = ?", integrationID).Error
}

var _ vault.RecordStore = (*GormCredentialRecordRepository)(nil)
