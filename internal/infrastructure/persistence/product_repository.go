package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pazarsync/backend/internal/domain/integration"
	"github.com/pazarsync/backend/internal/infrastructure/persistence/models"
)

// GormProductRepository reads the internal catalog that sync runs fan out to
// the platforms. It satisfies the orchestrator's product source port.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByIDs returns the syncable products for the given internal IDs. An
// empty slice selects the whole catalog.
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]integration.Product, error) {
	query := r.db.WithContext(ctx).
		Model(&models.InternalProductModel{}).
		Where("syncable = ?", true)

	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}

	var productModels []models.InternalProductModel
	if err := query.Order("sku ASC").Find(&productModels).Error; err != nil {
		return nil, err
	}

	result := make([]integration.Product, len(productModels))
	for i := range productModels {
		result[i] = productModels[i].ToDomain()
	}
	return result, nil
}

// FindChangedSince returns syncable products whose content changed after t.
func (r *GormProductRepository) FindChangedSince(ctx context.Context, t time.Time) ([]integration.Product, error) {
	var productModels []models.InternalProductModel
	if err := r.db.WithContext(ctx).
		Where("syncable = ? AND updated_at > ?", true, t).
		Order("sku ASC").
		Find(&productModels).Error; err != nil {
		return nil, err
	}

	result := make([]integration.Product, len(productModels))
	for i := range productModels {
		result[i] = productModels[i].ToDomain()
	}
	return result, nil
}

// Upsert creates or refreshes one catalog row keyed by SKU. Products pulled
// from a platform land here before mappings are written for them.
func (r *GormProductRepository) Upsert(ctx context.Context, p *integration.Product) (uuid.UUID, error) {
	var existing models.InternalProductModel
	err := r.db.WithContext(ctx).
		Where("sku = ?", p.SKU).
		First(&existing).Error

	id := existing.ID
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, err
		}
		id = uuid.New()
	}

	var model models.InternalProductModel
	model.FromDomain(id, p)
	model.CreatedAt = existing.CreatedAt
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now()
	}
	model.UpdatedAt = time.Now()

	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}},
			UpdateAll: true,
		}).
		Create(&model).Error; err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// Count returns the number of syncable catalog rows.
func (r *GormProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InternalProductModel{}).
		Where("syncable = ?", true).
		Count(&count).Error
	return count, err
}
