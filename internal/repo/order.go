package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/handmade_shop/internal/models"
)

type OrderFilter struct {
	UserID *uuid.UUID
	Status *models.OrderStatus
	From   *time.Time
	To     *time.Time
	IsPaid *bool
	Offset int
	Limit  int
}

func (f OrderFilter) apply(q *gorm.DB) *gorm.DB {
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("created_at <= ?", f.To.UTC())
	}
	if f.IsPaid != nil {
		q = q.Where("is_paid = ?", *f.IsPaid)
	}
	return q
}

func withOrderDetails(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("name") }).
		Preload("Items.Product").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (r *GormRepo) CreateOrder(ctx context.Context, o *models.Order) error {
	return r.DB.WithContext(ctx).Omit("User", "Items.Product").Create(o).Error
}

func (r *GormRepo) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	q := withOrderDetails(r.DB.WithContext(ctx)).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "email") })
	if err := q.First(&o, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// LockOrder reads the order row FOR UPDATE (a no-op on sqlite) with its items.
func (r *GormRepo) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if err := r.DB.WithContext(ctx).Where("order_id = ?", id).Find(&o.Items).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *GormRepo) FindOrderByIdempotencyKey(ctx context.Context, userID uuid.UUID, key string) (*models.Order, error) {
	var o models.Order
	err := r.DB.WithContext(ctx).Select("id").
		First(&o, "user_id = ? AND idempotency_key = ?", userID, key).Error
	if err != nil {
		return nil, err
	}
	return r.GetOrder(ctx, o.ID)
}

func (r *GormRepo) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Order{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := withOrderDetails(f.apply(r.DB.WithContext(ctx))).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "email") }).
		Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var orders []models.Order
	if err := q.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *GormRepo) UpdateOrderFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	return r.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields).Error
}

func (r *GormRepo) AppendStatus(ctx context.Context, orderID uuid.UUID, status models.OrderStatus, note string, at time.Time) error {
	return r.DB.WithContext(ctx).Create(&models.StatusChange{
		OrderID:   orderID,
		Status:    status,
		ChangedAt: at,
		Note:      note,
	}).Error
}

// HasDeliveredOrderWith reports whether the user owns a delivered or finished
// order containing the product.
func (r *GormRepo) HasDeliveredOrderWith(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND order_items.product_id = ? AND orders.status IN ?",
			userID, productID, []models.OrderStatus{models.OrderStatusDelivered, models.OrderStatusFinished}).
		Count(&n).Error
	return n > 0, err
}

// OrderAmounts loads only the columns reports aggregate over.
func (r *GormRepo) OrderAmounts(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	err := f.apply(r.DB.WithContext(ctx).Model(&models.Order{})).
		Select("id", "created_at", "total_amount", "status", "is_paid").
		Order("created_at").
		Find(&orders).Error
	return orders, err
}

func (r *GormRepo) PaidOrders(ctx context.Context, from, to *time.Time) ([]models.Order, error) {
	paid := true
	return r.OrderAmounts(ctx, OrderFilter{IsPaid: &paid, From: from, To: to})
}
