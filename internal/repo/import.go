package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/handmade_shop/internal/models"
)

type ImportFilter struct {
	ProductID      *uuid.UUID
	IncludeDeleted bool
	Offset         int
	Limit          int
}

func (f ImportFilter) apply(q *gorm.DB) *gorm.DB {
	if f.ProductID != nil {
		q = q.Where("product_id = ?", *f.ProductID)
	}
	if !f.IncludeDeleted {
		q = q.Where("deleted = ?", false)
	}
	return q
}

func (r *GormRepo) CreateImport(ctx context.Context, imp *models.Import) error {
	return r.DB.WithContext(ctx).Omit("Product").Create(imp).Error
}

func (r *GormRepo) GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	var imp models.Import
	err := r.DB.WithContext(ctx).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "slug", "stock") }).
		First(&imp, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// LockImport reads the import row FOR UPDATE; call it inside InTx.
func (r *GormRepo) LockImport(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	var imp models.Import
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&imp, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// MarkImportDeleted flips a live import to deleted. It reports false when the
// row was already deleted, so two concurrent deletes cannot both succeed.
func (r *GormRepo) MarkImportDeleted(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Import{}).
		Where("id = ? AND deleted = ?", id, false).
		Updates(map[string]any{"deleted": true, "deleted_at": at, "delete_reason": reason})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) SaveImport(ctx context.Context, imp *models.Import) error {
	return r.DB.WithContext(ctx).Omit("Product").Save(imp).Error
}

func (r *GormRepo) ListImports(ctx context.Context, f ImportFilter) ([]models.Import, int64, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Import{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := f.apply(r.DB.WithContext(ctx)).
		Preload("Product", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "slug", "stock") }).
		Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var items []models.Import
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
