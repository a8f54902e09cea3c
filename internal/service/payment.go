package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/mykafka"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
)

// RecordCODPayment books the cash collected for a delivered COD order and
// finishes it. At most one completed payment exists per order.
func (s *OrderService) RecordCODPayment(ctx context.Context, orderID, adminID uuid.UUID, note string) (*models.Payment, error) {
	l := logger(ctx, "order.record_cod_payment").With("order_id", orderID, "admin_id", adminID)

	var payment *models.Payment
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFound(err, "order")
		}
		if o.PaymentMethod != models.PaymentMethodCOD {
			return fmt.Errorf("%w: payment method is %s, only COD payments are recorded", ErrInvalidState, o.PaymentMethod)
		}
		if o.Status != models.OrderStatusDelivered {
			return fmt.Errorf("%w: order is %s, it must be delivered first", ErrInvalidState, o.Status)
		}
		exists, err := tx.CompletedPaymentExists(ctx, o.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: a completed payment already exists for this order", ErrInvalidState)
		}

		now := nowUTC()
		payment = &models.Payment{
			OrderID:   o.ID,
			UserID:    o.UserID,
			Amount:    o.TotalAmount,
			Method:    models.PaymentMethodCOD,
			Status:    models.PaymentStatusCompleted,
			PaidAt:    &now,
			CreatedBy: adminID,
			Note:      strings.TrimSpace(note),
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			if repo.IsDuplicate(err) {
				return fmt.Errorf("%w: a completed payment already exists for this order", ErrInvalidState)
			}
			return err
		}
		if err := tx.UpdateOrderFields(ctx, o.ID, map[string]any{
			"is_paid": true,
			"paid_at": now,
			"status":  models.OrderStatusFinished,
		}); err != nil {
			return err
		}
		return tx.AppendStatus(ctx, o.ID, models.OrderStatusFinished, notePaymentRecorded, now)
	})
	if err != nil {
		l.Warn("record_cod_payment_error", "error", err)
		return nil, err
	}
	l.Info("record_cod_payment_success", "payment_id", payment.ID, "amount", payment.Amount.String())

	publish(ctx, s.Events, mykafka.TopicOrders, "order_paid", orderID, map[string]any{
		"payment_id": payment.ID,
		"amount":     payment.Amount.String(),
	})
	return payment, nil
}

// MarkPaid is the deprecated shortcut. It shares RecordCODPayment's
// post-condition and returns the finished order.
func (s *OrderService) MarkPaid(ctx context.Context, orderID, adminID uuid.UUID) (*models.Order, error) {
	if _, err := s.RecordCODPayment(ctx, orderID, adminID, "marked paid"); err != nil {
		return nil, err
	}
	return s.Repo.GetOrder(ctx, orderID)
}
