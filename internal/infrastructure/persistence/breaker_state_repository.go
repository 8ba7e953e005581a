package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/infrastructure/persistence/models"
)

// GormBreakerStateRepository implements BreakerStateRepository using GORM
type GormBreakerStateRepository struct {
	db *gorm.DB
}

// NewGormBreakerStateRepository creates a new GormBreakerStateRepository
func NewGormBreakerStateRepository(db *gorm.DB) *GormBreakerStateRepository {
	return &GormBreakerStateRepository{db: db}
}

// Save upserts the snapshot for an integration
func (r *GormBreakerStateRepository) Save(ctx context.Context, record *integration.BreakerRecord) error {
	var model models.BreakerStateModel
	model.FromDomain(record)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "integration_id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

// FindByIntegration finds the snapshot for an integration
func (r *GormBreakerStateRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID) (*integration.BreakerRecord, error) {
	var model models.BreakerStateModel
	if err := r.db.WithContext(ctx).First(&model, "integration_id = ?", integrationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrIntegrationNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists all snapshots
func (r *GormBreakerStateRepository) FindAll(ctx context.Context) ([]integration.BreakerRecord, error) {
	var stateModels []models.BreakerStateModel
	if err := r.db.WithContext(ctx).Find(&stateModels).Error; err != nil {
		return nil, err
	}

	records := make([]integration.BreakerRecord, len(stateModels))
	for i, model := range stateModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

var _ integration.BreakerStateRepository = (*GormBreakerStateRepository)(nil)
