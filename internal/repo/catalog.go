package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/handmade_shop/internal/models"
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

type ProductFilter struct {
	Search     string // already folded
	RawSearch  string
	CategoryID *uuid.UUID
	Featured   *bool
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	IDs        []uuid.UUID
	Sort       string
	Offset     int
	Limit      int
}

func (f ProductFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Search != "" || f.RawSearch != "" {
		q = q.Where(
			"(slug LIKE ? ESCAPE '\\' OR name_normalized LIKE ? ESCAPE '\\' OR LOWER(name) LIKE ? ESCAPE '\\')",
			containsPattern(f.Search), containsPattern(f.Search), containsPattern(lower(f.RawSearch)),
		)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if f.Featured != nil {
		q = q.Where("is_featured = ?", *f.Featured)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.IDs != nil {
		q = q.Where("id IN ?", f.IDs)
	}
	return q
}

func orderClause(sort string) string {
	switch sort {
	case SortPriceAsc:
		return "price ASC, created_at DESC"
	case SortPriceDesc:
		return "price DESC, created_at DESC"
	default:
		return "created_at DESC, id"
	}
}

func (r *GormRepo) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.Product
	q := f.apply(r.DB.WithContext(ctx).Model(&models.Product{})).Order(orderClause(f.Sort))
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	err := r.DB.WithContext(ctx).
		Preload("Category").
		Preload("Feedbacks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Preload("Feedbacks.User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name") }).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).Select("id").First(&p, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return r.GetProduct(ctx, p.ID)
}

// FindProduct loads the bare row without associations.
func (r *GormRepo) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) RelatedProducts(ctx context.Context, p *models.Product, limit int) ([]models.Product, error) {
	var items []models.Product
	err := r.DB.WithContext(ctx).
		Where("category_id = ? AND id <> ?", p.CategoryID, p.ID).
		Order("created_at DESC").Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *GormRepo) SlugExists(ctx context.Context, slug string, except uuid.UUID) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("slug = ? AND id <> ?", slug, except).Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Omit("Category", "Feedbacks").Create(p).Error
}

// UpdateProductFields writes only the given columns; stock is never among them.
func (r *GormRepo) UpdateProductFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	delete(fields, "stock")
	res := r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Product{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		for _, m := range []any{&models.Feedback{}, &models.CartItem{}, &models.Favorite{}} {
			if err := tx.Where("product_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormRepo) SetProductRate(ctx context.Context, id uuid.UUID, rate float64) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Update("rate", rate).Error
}

// Categories

func (r *GormRepo) ListCategories(ctx context.Context, onlyActive bool) ([]models.Category, error) {
	q := r.DB.WithContext(ctx).Order("created_at DESC")
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}
	var items []models.Category
	err := q.Find(&items).Error
	return items, err
}

func (r *GormRepo) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	if err := r.DB.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepo) CategoryNameTaken(ctx context.Context, name string, except uuid.UUID) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Category{}).
		Where("LOWER(name) = ? AND id <> ?", lower(name), except).Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) CreateCategory(ctx context.Context, c *models.Category) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *GormRepo) SaveCategory(ctx context.Context, c *models.Category) error {
	return r.DB.WithContext(ctx).Save(c).Error
}

// Feedback

func (r *GormRepo) GetFeedback(ctx context.Context, productID, userID uuid.UUID) (*models.Feedback, error) {
	var f models.Feedback
	err := r.DB.WithContext(ctx).First(&f, "product_id = ? AND user_id = ?", productID, userID).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *GormRepo) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	return r.DB.WithContext(ctx).Omit("User").Create(f).Error
}

func (r *GormRepo) SaveFeedback(ctx context.Context, f *models.Feedback) error {
	return r.DB.WithContext(ctx).Omit("User").Save(f).Error
}

func (r *GormRepo) FeedbackRatings(ctx context.Context, productID uuid.UUID) ([]int, error) {
	var ratings []int
	err := r.DB.WithContext(ctx).Model(&models.Feedback{}).
		Where("product_id = ?", productID).Pluck("rating", &ratings).Error
	return ratings, err
}

func (r *GormRepo) ReviewedProductIDs(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(productIDs) == 0 {
		return ids, nil
	}
	err := r.DB.WithContext(ctx).Model(&models.Feedback{}).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).Pluck("product_id", &ids).Error
	return ids, err
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports a unique-index violation (requires TranslateError).
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
