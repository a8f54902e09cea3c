package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/handmade_shop/internal/models"
)

type PaymentFilter struct {
	From   *time.Time
	To     *time.Time
	Method *models.PaymentMethod
	Status *models.PaymentStatus
	Offset int
	Limit  int
}

func (f PaymentFilter) apply(q *gorm.DB) *gorm.DB {
	if f.From != nil {
		q = q.Where("payments.created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("payments.created_at <= ?", f.To.UTC())
	}
	if f.Method != nil {
		q = q.Where("payments.method = ?", *f.Method)
	}
	if f.Status != nil {
		q = q.Where("payments.status = ?", *f.Status)
	}
	return q
}

func (r *GormRepo) CompletedPaymentExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", orderID, models.PaymentStatusCompleted).
		Count(&n).Error
	return n > 0, err
}

func (r *GormRepo) CreatePayment(ctx context.Context, p *models.Payment) error {
	return r.DB.WithContext(ctx).Omit("Order", "User").Create(p).Error
}

func (r *GormRepo) ListPayments(ctx context.Context, f PaymentFilter) ([]models.Payment, int64, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Payment{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := f.apply(r.DB.WithContext(ctx)).
		Preload("Order", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "user_id", "total_amount", "status", "is_paid", "created_at")
		}).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "name", "email") }).
		Order("payments.created_at DESC")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	var items []models.Payment
	if err := q.Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

type PaymentTotals struct {
	TotalRevenue  decimal.Decimal
	TotalPayments int64
}

func (r *GormRepo) CompletedPaymentTotals(ctx context.Context, from, to *time.Time) (PaymentTotals, error) {
	var out PaymentTotals
	status := models.PaymentStatusCompleted
	f := PaymentFilter{From: from, To: to, Status: &status}
	err := f.apply(r.DB.WithContext(ctx).Model(&models.Payment{})).
		Select("COALESCE(SUM(amount), 0) AS total_revenue, COUNT(*) AS total_payments").
		Scan(&out).Error
	return out, err
}
