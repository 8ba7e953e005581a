package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/infrastructure/persistence/models"
)

// GormMappingRepository implements MappingRepository using GORM. The unique
// index on (internal_entity_id, integration_id) backs the one-record-per-pair
// rule; Save surfaces a violation as ErrMappingAlreadyExists.
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// Save creates or updates a mapping record
func (r *GormMappingRepository) Save(ctx context.Context, record *integration.MappingRecord) error {
	var model models.MappingRecordModel
	model.FromDomain(record)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return integration.ErrMappingAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a mapping by ID
func (r *GormMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.MappingRecord, error) {
	var model models.MappingRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPair finds the mapping for an internal entity on one integration
func (r *GormMappingRepository) FindByPair(ctx context.Context, internalEntityID, integrationID uuid.UUID) (*integration.MappingRecord, error) {
	var model models.MappingRecordModel
	if err := r.db.WithContext(ctx).
		Where("internal_entity_id = ? AND integration_id = ?", internalEntityID, integrationID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByExternal finds the mapping holding an external ID on one integration
func (r *GormMappingRepository) FindByExternal(ctx context.Context, integrationID uuid.UUID, externalID string) (*integration.MappingRecord, error) {
	var model models.MappingRecordModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND external_id = ?", integrationID, externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIntegration lists mappings of one entity type for an integration
func (r *GormMappingRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, entityType integration.EntityType) ([]integration.MappingRecord, error) {
	var recordModels []models.MappingRecordModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND entity_type = ?", integrationID, entityType).
		Order("created_at ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]integration.MappingRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// FindFailed lists mappings of an integration whose last push failed
func (r *GormMappingRepository) FindFailed(ctx context.Context, integrationID uuid.UUID) ([]integration.MappingRecord, error) {
	var recordModels []models.MappingRecordModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND sync_state = ?", integrationID, integration.SyncStateError).
		Order("created_at ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]integration.MappingRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// Delete removes a mapping record
func (r *GormMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.MappingRecordModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrMappingNotFound
	}
	return nil
}

var _ integration.MappingRepository = (*GormMappingRepository)(nil)
