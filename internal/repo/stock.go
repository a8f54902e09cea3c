package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/handmade_shop/internal/models"
)

// ReserveStock subtracts qty only if enough stock is left. It reports false
// when the guard rejected the update (or the product does not exist).
func (r *GormRepo) ReserveStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// RestoreStock adds qty back without an upper bound.
func (r *GormRepo) RestoreStock(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}

// AdjustStockClamped applies delta in one statement and floors the result at 0.
func (r *GormRepo) AdjustStockClamped(ctx context.Context, productID uuid.UUID, delta int) error {
	return r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("stock", gorm.Expr("CASE WHEN stock + ? < 0 THEN 0 ELSE stock + ? END", delta, delta)).Error
}

func (r *GormRepo) GetStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).Select("id", "stock").First(&p, "id = ?", productID).Error; err != nil {
		return 0, err
	}
	return p.Stock, nil
}
