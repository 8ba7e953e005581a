package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements SyncJobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Save creates or updates a job
func (r *GormSyncJobRepository) Save(ctx context.Context, job *integration.SyncJob) error {
	var model models.SyncJobModel
	model.FromDomain(job)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID finds a job by ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncJob, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent lists the most recent jobs, newest first
func (r *GormSyncJobRepository) FindRecent(ctx context.Context, limit int) ([]integration.SyncJob, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobModels []models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&jobModels).Error; err != nil {
		return nil, err
	}

	jobs := make([]integration.SyncJob, len(jobModels))
	for i, model := range jobModels {
		jobs[i] = *model.ToDomain()
	}
	return jobs, nil
}

var _ integration.SyncJobRepository = (*GormSyncJobRepository)(nil)
