package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/mykafka"
	"github.com/Skotchmaster/handmade_shop/internal/notify"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
	"github.com/Skotchmaster/handmade_shop/internal/util"
)

const (
	noteOrderCreated    = "order created"
	noteUserCancelled   = "user cancelled"
	noteAdminUpdated    = "admin updated status"
	noteAdminForced     = "admin forced status"
	notePaymentRecorded = "payment recorded"
)

type OrderService struct {
	Repo     *repo.GormRepo
	Events   EventPublisher
	Notifier notify.Sender
	Catalog  *CatalogService // optional, keeps the search index stock current
}

type LineItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateOrderInput struct {
	Items           []LineItem
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	Note            string
	IdempotencyKey  string
}

func (s *OrderService) CreateOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*models.Order, error) {
	return s.createOrder(ctx, userID, in, nil)
}

// createOrder reserves stock, snapshots prices and inserts the order in one
// transaction. cartLines are removed from the user's cart in that same
// transaction.
func (s *OrderService) createOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput, cartLines []uuid.UUID) (*models.Order, error) {
	l := logger(ctx, "order.create_order").With("user_id", userID)

	items, err := mergeLineItems(in.Items)
	if err != nil {
		return nil, err
	}
	addr, err := normalizeAddress(in.ShippingAddress)
	if err != nil {
		return nil, err
	}
	method, ok := models.ParsePaymentMethod(in.PaymentMethod)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if existing, err := s.Repo.FindOrderByIdempotencyKey(ctx, userID, key); err == nil {
			l.Info("create_order_replayed", "order_id", existing.ID)
			return existing, nil
		} else if !repo.IsNotFound(err) {
			return nil, err
		}
	}

	now := nowUTC()
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		ShippingAddr:  addr,
		PaymentMethod: method,
		Note:          strings.TrimSpace(in.Note),
		Status:        models.OrderStatusPending,
		StatusHistory: []models.StatusChange{{Status: models.OrderStatusPending, ChangedAt: now, Note: noteOrderCreated}},
	}
	if key != "" {
		order.IdempotencyKey = &key
	}

	err = s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		total := decimal.Zero
		for _, it := range items {
			reserved, err := tx.ReserveStock(ctx, it.ProductID, it.Quantity)
			if err != nil {
				return err
			}
			p, err := tx.FindProduct(ctx, it.ProductID)
			if err != nil {
				return notFound(err, "product "+it.ProductID.String())
			}
			if !reserved {
				return &OutOfStockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: it.Quantity}
			}
			line := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
			order.Items = append(order.Items, models.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				Quantity:  it.Quantity,
				UnitPrice: p.Price,
				LineTotal: line,
			})
			total = total.Add(line)
		}
		order.TotalAmount = total

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		return tx.DeleteCartItems(ctx, userID, cartLines)
	})
	if err != nil {
		if key != "" && repo.IsDuplicate(err) {
			// a concurrent request with the same key won the insert
			if existing, ferr := s.Repo.FindOrderByIdempotencyKey(ctx, userID, key); ferr == nil {
				return existing, nil
			}
		}
		var oos *OutOfStockError
		switch {
		case errors.As(err, &oos):
			l.Warn("create_order_error", "status", 409, "reason", "out of stock", "product_id", oos.ProductID)
		case errors.Is(err, ErrNotFound):
			l.Warn("create_order_error", "status", 404, "reason", "product not found", "error", err)
		default:
			l.Error("create_order_error", "status", 500, "error", err)
		}
		return nil, err
	}

	created, err := s.Repo.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	l.Info("create_order_success", "order_id", created.ID, "total", created.TotalAmount.String())

	s.afterCreate(ctx, created)
	return created, nil
}

// afterCreate runs the best-effort side effects of a new order.
func (s *OrderService) afterCreate(ctx context.Context, o *models.Order) {
	l := logger(ctx, "order.after_create").With("order_id", o.ID)

	user, err := s.Repo.GetUser(ctx, o.UserID)
	if err != nil {
		l.Warn("load_user_error", "error", err)
	} else {
		user.Address = o.ShippingAddr.AddressLine
		user.City = o.ShippingAddr.City
		user.ZipCode = o.ShippingAddr.PostalCode
		user.Phone = o.ShippingAddr.Phone
		if err := s.Repo.SaveUser(ctx, user); err != nil {
			l.Warn("sync_profile_address_error", "error", err)
		}
		sendNotification(ctx, s.Notifier, notify.OrderConfirmation(user.Email, user.Name, orderSummary(o)))
	}

	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	s.Catalog.ReindexStock(ctx, ids...)
	publish(ctx, s.Events, mykafka.TopicOrders, "order_created", o.ID, map[string]any{
		"user_id":      o.UserID,
		"total_amount": o.TotalAmount.String(),
		"items":        len(o.Items),
	})
}

func orderSummary(o *models.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"name":       it.Name,
			"quantity":   it.Quantity,
			"unit_price": it.UnitPrice.StringFixed(2),
			"line_total": it.LineTotal.StringFixed(2),
		})
	}
	return map[string]any{
		"order_id":         o.ID.String(),
		"total_amount":     o.TotalAmount.StringFixed(2),
		"payment_method":   string(o.PaymentMethod),
		"shipping_address": o.ShippingAddr,
		"items":            items,
	}
}

func (s *OrderService) CancelOrder(ctx context.Context, orderID, requesterID uuid.UUID) (*models.Order, error) {
	l := logger(ctx, "order.cancel_order").With("order_id", orderID)

	var restored []uuid.UUID
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFound(err, "order")
		}
		if o.UserID != requesterID {
			return fmt.Errorf("%w: only the owner may cancel this order", ErrForbidden)
		}
		if !o.Status.Cancellable() {
			return fmt.Errorf("%w: cannot cancel an order that is %s", ErrInvalidTransition, o.Status)
		}
		for _, it := range o.Items {
			if err := tx.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
			restored = append(restored, it.ProductID)
		}
		return setStatus(ctx, tx, o.ID, models.OrderStatusCancelled, noteUserCancelled)
	})
	if err != nil {
		l.Warn("cancel_order_error", "error", err)
		return nil, err
	}

	s.Catalog.ReindexStock(ctx, restored...)
	publish(ctx, s.Events, mykafka.TopicOrders, "order_cancelled", orderID, map[string]any{"by": requesterID})
	return s.Repo.GetOrder(ctx, orderID)
}

type StatusUpdate struct {
	Status string
	Force  bool
	Note   string
}

// UpdateStatus is the admin status change. The transition table is enforced
// unless Force is set.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, in StatusUpdate) (*models.Order, error) {
	l := logger(ctx, "order.update_status").With("order_id", orderID, "force", in.Force)

	target, ok := models.ParseOrderStatus(in.Status)
	if !ok {
		return nil, fmt.Errorf("%w: status must be one of %v", ErrValidation, models.CanonicalStatuses)
	}
	note := strings.TrimSpace(in.Note)
	if note == "" {
		note = noteAdminUpdated
		if in.Force {
			note = noteAdminForced
		}
	}

	var (
		from     models.OrderStatus
		restored []uuid.UUID
	)
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return notFound(err, "order")
		}
		from = o.Status
		if !in.Force {
			if !from.CanTransitionTo(target) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, target)
			}
			if target == models.OrderStatusFinished && o.PaymentMethod == models.PaymentMethodCOD {
				return fmt.Errorf("%w: COD orders are finished by recording the payment", ErrInvalidTransition)
			}
		}
		if target == models.OrderStatusCancelled && from != models.OrderStatusCancelled {
			for _, it := range o.Items {
				if err := tx.RestoreStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
				restored = append(restored, it.ProductID)
			}
		}
		return setStatus(ctx, tx, o.ID, target, note)
	})
	if err != nil {
		l.Warn("update_status_error", "target", target, "error", err)
		return nil, err
	}
	l.Info("update_status_success", "from", from, "to", target)

	s.Catalog.ReindexStock(ctx, restored...)
	publish(ctx, s.Events, mykafka.TopicOrders, "order_status_changed", orderID, map[string]any{
		"from":   from,
		"to":     target,
		"forced": in.Force,
	})
	return s.Repo.GetOrder(ctx, orderID)
}

func setStatus(ctx context.Context, tx *repo.GormRepo, orderID uuid.UUID, st models.OrderStatus, note string) error {
	if err := tx.UpdateOrderFields(ctx, orderID, map[string]any{"status": st}); err != nil {
		return err
	}
	return tx.AppendStatus(ctx, orderID, st, note, nowUTC())
}

// Reads

func (s *OrderService) MyOrders(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, util.Meta, error) {
	offset, limit := util.Calculate(page, size)
	orders, total, err := s.Repo.ListOrders(ctx, repo.OrderFilter{UserID: &userID, Offset: offset, Limit: limit})
	if err != nil {
		return nil, util.Meta{}, err
	}
	return orders, util.NewMeta(page, limit, total), nil
}

// GetOrder returns the order to its owner or to an admin.
func (s *OrderService) GetOrder(ctx context.Context, orderID, requesterID uuid.UUID, role string) (*models.Order, error) {
	o, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFound(err, "order")
	}
	if role != models.RoleAdmin && o.UserID != requesterID {
		return nil, fmt.Errorf("%w: not your order", ErrForbidden)
	}
	return o, nil
}

type OrderQuery struct {
	Status string
	From   *time.Time
	To     *time.Time
	Page   int
	Size   int
}

func (s *OrderService) ListOrders(ctx context.Context, q OrderQuery) ([]models.Order, util.Meta, error) {
	f := repo.OrderFilter{From: q.From, To: q.To}
	if q.Status != "" {
		st, ok := models.ParseOrderStatus(q.Status)
		if !ok {
			return nil, util.Meta{}, fmt.Errorf("%w: unknown status %q", ErrValidation, q.Status)
		}
		f.Status = &st
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, util.Meta{}, fmt.Errorf("%w: from must not be after to", ErrValidation)
	}
	f.Offset, f.Limit = util.Calculate(q.Page, q.Size)
	orders, total, err := s.Repo.ListOrders(ctx, f)
	if err != nil {
		return nil, util.Meta{}, err
	}
	return orders, util.NewMeta(q.Page, f.Limit, total), nil
}

func mergeLineItems(in []LineItem) ([]LineItem, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	out := make([]LineItem, 0, len(in))
	pos := make(map[uuid.UUID]int, len(in))
	for _, it := range in {
		if it.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
		if i, ok := pos[it.ProductID]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		pos[it.ProductID] = len(out)
		out = append(out, it)
	}
	return out, nil
}

func normalizeAddress(a models.ShippingAddress) (models.ShippingAddress, error) {
	a.FullName = strings.TrimSpace(a.FullName)
	a.Phone = strings.TrimSpace(a.Phone)
	a.AddressLine = strings.TrimSpace(a.AddressLine)
	a.City = strings.TrimSpace(a.City)
	a.PostalCode = strings.TrimSpace(a.PostalCode)

	for _, f := range []struct{ name, v string }{
		{"full_name", a.FullName},
		{"phone", a.Phone},
		{"address_line", a.AddressLine},
		{"city", a.City},
		{"postal_code", a.PostalCode},
	} {
		if f.v == "" {
			return a, fmt.Errorf("%w: shipping address %s required", ErrValidation, f.name)
		}
	}
	return a, nil
}
