package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/infrastructure/persistence/models"
)

// GormIntegrationRepository implements IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// isUniqueViolation reports whether err is a unique constraint violation.
// GORM translates these when TranslateError is on; the string checks cover
// drivers that don't.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Save creates or updates an integration
func (r *GormIntegrationRepository) Save(ctx context.Context, i *integration.Integration) error {
	var model models.IntegrationModel
	model.FromDomain(i)
	if err := r.db.WithContext(ctx).Save(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return integration.ErrIntegrationAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds an integration by ID
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPlatform finds the integration configured for a platform
func (r *GormIntegrationRepository) FindByPlatform(ctx context.Context, platform integration.PlatformCode) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("platform = ? AND deleted_at IS NULL", platform).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists integrations matching the filter
func (r *GormIntegrationRepository) FindAll(ctx context.Context, filter integration.IntegrationFilter) ([]integration.Integration, error) {
	query := r.db.WithContext(ctx).
		Model(&models.IntegrationModel{}).
		Where("deleted_at IS NULL")

	if filter.Platform != nil {
		query = query.Where("platform = ?", *filter.Platform)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Enabled != nil {
		query = query.Where("enabled = ?", *filter.Enabled)
	}

	var integrationModels []models.IntegrationModel
	if err := query.Order("created_at ASC").Find(&integrationModels).Error; err != nil {
		return nil, err
	}

	result := make([]integration.Integration, len(integrationModels))
	for i, model := range integrationModels {
		result[i] = *model.ToDomain()
	}
	return result, nil
}

// FindUsable lists enabled integrations holding credentials
func (r *GormIntegrationRepository) FindUsable(ctx context.Context) ([]integration.Integration, error) {
	var integrationModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("enabled = ? AND has_credentials = ? AND deleted_at IS NULL", true, true).
		Order("created_at ASC").
		Find(&integrationModels).Error; err != nil {
		return nil, err
	}

	result := make([]integration.Integration, len(integrationModels))
	for i, model := range integrationModels {
		result[i] = *model.ToDomain()
	}
	return result, nil
}

var _ integration.IntegrationRepository = (*GormIntegrationRepository)(nil)
