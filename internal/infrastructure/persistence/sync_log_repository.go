package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

// Save persists one terminal entry
func (r *GormSyncLogRepository) Save(ctx context.Context, entry *integration.SyncLogEntry) error {
	var model models.SyncLogModel
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByJob lists the entries of one job
func (r *GormSyncLogRepository) FindByJob(ctx context.Context, jobID uuid.UUID) ([]integration.SyncLogEntry, error) {
	var logModels []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]integration.SyncLogEntry, len(logModels))
	for i, model := range logModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

// FindByIntegration lists recent entries for one integration, newest first
func (r *GormSyncLogRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID, limit int) ([]integration.SyncLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var logModels []models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logModels).Error; err != nil {
		return nil, err
	}

	entries := make([]integration.SyncLogEntry, len(logModels))
	for i, model := range logModels {
		entries[i] = *model.ToDomain()
	}
	return entries, nil
}

var _ integration.SyncLogRepository = (*GormSyncLogRepository)(nil)
