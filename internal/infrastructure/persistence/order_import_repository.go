package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/infrastructure/persistence/models"
)

// GormOrderImportRepository stores orders pulled from the platforms. It
// satisfies the orchestrator's order sink port: importing the same external
// order twice refreshes the row instead of duplicating it.
type GormOrderImportRepository struct {
	db *gorm.DB
}

// NewGormOrderImportRepository creates a new GormOrderImportRepository
func NewGormOrderImportRepository(db *gorm.DB) *GormOrderImportRepository {
	return &GormOrderImportRepository{db: db}
}

// ImportOrder upserts one normalized order keyed by (integration, external ID).
func (r *GormOrderImportRepository) ImportOrder(ctx context.Context, intg *integration.Integration, order *integration.Order) error {
	var existing models.ImportedOrderModel
	err := r.db.WithContext(ctx).
		Where("integration_id = ? AND external_id = ?", intg.ID, order.ExternalID).
		First(&existing).Error

	now := time.Now()
	var model models.ImportedOrderModel
	model.FromDomain(intg, order)

	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		model.ID = uuid.New()
		model.CreatedAt = now
		model.UpdatedAt = now
		if createErr := r.db.WithContext(ctx).Create(&model).Error; createErr != nil {
			if isUniqueViolation(createErr) {
				// Concurrent import of the same order; the other writer won.
				return nil
			}
			return createErr
		}
		return nil
	}

	model.ID = existing.ID
	model.CreatedAt = existing.CreatedAt
	model.UpdatedAt = now
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByIntegration lists imported orders for one integration, newest first.
func (r *GormOrderImportRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]integration.Order, error) {
	var orderModels []models.ImportedOrderModel
	query := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("placed_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&orderModels).Error; err != nil {
		return nil, err
	}

	result := make([]integration.Order, len(orderModels))
	for i := range orderModels {
		result[i] = orderModels[i].ToDomain()
	}
	return result, nil
}
