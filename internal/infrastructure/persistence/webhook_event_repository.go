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

// GormWebhookEventRepository implements WebhookEventRepository using GORM.
// The unique index on (integration_id, event_id) is the durable idempotency
// check: a replayed event fails the insert and is acknowledged without
// reprocessing.
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Save inserts a new event
func (r *GormWebhookEventRepository) Save(ctx context.Context, event *integration.WebhookEvent) error {
	var model models.WebhookEventModel
	model.FromDomain(event)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return integration.ErrWebhookEventExists
		}
		return err
	}
	return nil
}

// Update persists processing state changes
func (r *GormWebhookEventRepository) Update(ctx context.Context, event *integration.WebhookEvent) error {
	var model models.WebhookEventModel
	model.FromDomain(event)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByID finds an event by row ID
func (r *GormWebhookEventRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.WebhookEvent, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrWebhookEventNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEventID finds an event by platform event ID
func (r *GormWebhookEventRepository) FindByEventID(ctx context.Context, integrationID uuid.UUID, eventID string) (*integration.WebhookEvent, error) {
	var model models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND event_id = ?", integrationID, eventID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrWebhookEventNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindUnprocessed lists events with no ProcessedAt older than the cutoff
func (r *GormWebhookEventRepository) FindUnprocessed(ctx context.Context, olderThan time.Time, limit int) ([]integration.WebhookEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	var eventModels []models.WebhookEventModel
	if err := r.db.WithContext(ctx).
		Where("processed_at IS NULL AND received_at < ?", olderThan).
		Order("received_at ASC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		return nil, err
	}

	events := make([]integration.WebhookEvent, len(eventModels))
	for i, model := range eventModels {
		events[i] = *model.ToDomain()
	}
	return events, nil
}

var _ integration.WebhookEventRepository = (*GormWebhookEventRepository)(nil)
