package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/mykafka"
	"github.com/Skotchmaster/handmade_shop/internal/notify"
)

func TestOrderService_CreateAndCancel(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	p := f.product(t, "Blue vase", "100", 5)

	o := f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 3})
	assert.Equal(t, 2, f.stock(t, p.ID))
	assertDecimal(t, "300", o.TotalAmount)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.False(t, o.IsPaid)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, "order created", o.StatusHistory[0].Note)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Blue vase", o.Items[0].Name)
	assertDecimal(t, "100", o.Items[0].UnitPrice)

	cancelled, err := f.orders.CancelOrder(f.ctx, o.ID, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(t, p.ID))
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	require.Len(t, cancelled.StatusHistory, 2)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.StatusHistory[1].Status)
	assert.Equal(t, "user cancelled", cancelled.StatusHistory[1].Note)

	assert.Equal(t, []string{"order_created", "order_cancelled"}, f.events.types(mykafka.TopicOrders))
}

func TestOrderService_CreateOrder_SideEffects(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	p := f.product(t, "Mug", "45.50", 10)
	f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 2})

	msg := f.mail.last()
	assert.Equal(t, notify.KindOrderConfirmation, msg.Kind)
	assert.Equal(t, "lan@example.com", msg.To)
	assert.Equal(t, "91.00", msg.Data["total_amount"])

	profile, err := f.repo.GetUser(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "12 Hang Bac", profile.Address)
	assert.Equal(t, "Hanoi", profile.City)
	assert.Equal(t, "100000", profile.ZipCode)
	assert.Equal(t, "0912345678", profile.Phone)
}

func TestOrderService_CreateOrder_NotificationFailureIsIgnored(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.mail.fail = true

	u := f.user(t, "lan@example.com")
	p := f.product(t, "Mug", "10", 1)
	o := f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 1})
	assert.Equal(t, models.OrderStatusPending, o.Status)
}

func TestOrderService_CreateOrder_PriceSnapshot(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	p := f.product(t, "Blue vase", "100", 5)
	o := f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 2})

	newPrice := decimal.NewFromInt(150)
	_, err := f.catalog.UpdateProduct(f.ctx, p.ID, ProductInput{Price: &newPrice})
	require.NoError(t, err)

	got, err := f.orders.GetOrder(f.ctx, o.ID, u.ID, models.RoleUser)
	require.NoError(t, err)
	assertDecimal(t, "200", got.TotalAmount)
	assertDecimal(t, "100", got.Items[0].UnitPrice)
	assertDecimal(t, "200", got.Items[0].LineTotal)
}

func TestOrderService_CreateOrder_OutOfStockRollsBack(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	plenty := f.product(t, "Bowl", "20", 10)
	scarce := f.product(t, "Teapot", "80", 1)

	_, err := f.orders.CreateOrder(f.ctx, u.ID, CreateOrderInput{
		Items: []LineItem{
			{ProductID: plenty.ID, Quantity: 4},
			{ProductID: scarce.ID, Quantity: 2},
		},
		ShippingAddress: address(),
	})
	require.ErrorIs(t, err, ErrOutOfStock)

	var oos *OutOfStockError
	require.True(t, errors.As(err, &oos))
	assert.Equal(t, scarce.ID, oos.ProductID)
	assert.Equal(t, 1, oos.Available)
	assert.Equal(t, 2, oos.Requested)

	assert.Equal(t, 10, f.stock(t, plenty.ID))
	assert.Equal(t, 1, f.stock(t, scarce.ID))
}

func TestOrderService_CreateOrder_MergesDuplicateLines(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	p := f.product(t, "Bowl", "20", 3)

	_, err := f.orders.CreateOrder(f.ctx, u.ID, CreateOrderInput{
		Items:           []LineItem{{ProductID: p.ID, Quantity: 2}, {ProductID: p.ID, Quantity: 2}},
		ShippingAddress: address(),
	})
	require.ErrorIs(t, err, ErrOutOfStock)
	assert.Equal(t, 3, f.stock(t, p.ID))
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	p := f.product(t, "Bowl", "20", 3)

	noCity := address()
	noCity.City = "  "

	tests := []struct {
		name string
		in   CreateOrderInput
		want error
	}{
		{name: "no items", in: CreateOrderInput{ShippingAddress: address()}, want: ErrValidation},
		{name: "zero quantity", in: CreateOrderInput{Items: []LineItem{{ProductID: p.ID}}, ShippingAddress: address()}, want: ErrValidation},
		{name: "missing city", in: CreateOrderInput{Items: []LineItem{{ProductID: p.ID, Quantity: 1}}, ShippingAddress: noCity}, want: ErrValidation},
		{name: "bad method", in: CreateOrderInput{Items: []LineItem{{ProductID: p.ID, Quantity: 1}}, ShippingAddress: address(), PaymentMethod: "bitcoin"}, want: ErrValidation},
		{name: "unknown product", in: CreateOrderInput{Items: []LineItem{{ProductID: uuid.New(), Quantity: 1}}, ShippingAddress: address()}, want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(f.ctx, u.ID, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 3, f.stock(t, p.ID))
}

func TestOrderService_CreateOrder_IdempotencyKey(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	p := f.product(t, "Bowl", "20", 5)
	in := CreateOrderInput{
		Items:           []LineItem{{ProductID: p.ID, Quantity: 2}},
		ShippingAddress: address(),
		IdempotencyKey:  "checkout-1",
	}

	first, err := f.orders.CreateOrder(f.ctx, u.ID, in)
	require.NoError(t, err)
	second, err := f.orders.CreateOrder(f.ctx, u.ID, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3, f.stock(t, p.ID))

	other := f.user(t, "minh@example.com")
	third, err := f.orders.CreateOrder(f.ctx, other.ID, in)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.Equal(t, 1, f.stock(t, p.ID))
}

func TestOrderService_CancelOrder_Rules(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	owner := f.user(t, "lan@example.com")
	stranger := f.user(t, "minh@example.com")
	p := f.product(t, "Bowl", "20", 5)

	o := f.order(t, owner.ID, LineItem{ProductID: p.ID, Quantity: 1})

	_, err := f.orders.CancelOrder(f.ctx, o.ID, stranger.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.CancelOrder(f.ctx, uuid.New(), owner.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.orders.UpdateStatus(f.ctx, o.ID, StatusUpdate{Status: "processing"})
	require.NoError(t, err)
	_, err = f.orders.UpdateStatus(f.ctx, o.ID, StatusUpdate{Status: "shipped"})
	require.NoError(t, err)

	_, err = f.orders.CancelOrder(f.ctx, o.ID, owner.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 4, f.stock(t, p.ID))
}

func TestOrderService_UpdateStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	p := f.product(t, "Bowl", "20", 5)
	o := f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 2})

	_, err := f.orders.UpdateStatus(f.ctx, o.ID, StatusUpdate{Status: "bogus"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.orders.UpdateStatus(f.ctx, o.ID, StatusUpdate{Status: "delivered"})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := f.orders.UpdateStatus(f.ctx, o.ID, StatusUpdate{Status: "confirmed"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, got.Status)
	assert.Equal(t, "admin updated status", got.StatusHistory[len(got.StatusHistory)-1].Note)

	got, err = f.orders.UpdateStatus(f.ctx, o.ID, StatusUpdate{Status: "delivered", Force: true})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, got.Status)
	assert.Equal(t, "admin forced status", got.StatusHistory[len(got.StatusHistory)-1].Note)
	assert.Len(t, got.StatusHistory, 3)

	_, err = f.orders.UpdateStatus(f.ctx, o.ID, StatusUpdate{Status: "finished"})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderService_UpdateStatus_CancelRestoresStock(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	p := f.product(t, "Bowl", "20", 5)
	o := f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 2})
	require.Equal(t, 3, f.stock(t, p.ID))

	got, err := f.orders.UpdateStatus(f.ctx, o.ID, StatusUpdate{Status: "cancelled", Note: "customer called"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)
	assert.Equal(t, "customer called", got.StatusHistory[len(got.StatusHistory)-1].Note)
	assert.Equal(t, 5, f.stock(t, p.ID))

	_, err = f.orders.UpdateStatus(f.ctx, o.ID, StatusUpdate{Status: "cancelled", Force: true})
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(t, p.ID))
}

func TestOrderService_RecordCODPayment(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	admin := f.user(t, "admin@example.com")
	u := f.user(t, "lan@example.com")
	p := f.product(t, "Bowl", "120", 5)
	o := f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 2})

	_, err := f.orders.RecordCODPayment(f.ctx, o.ID, admin.ID, "")
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "delivered")

	f.deliver(t, o.ID)

	pay, err := f.orders.RecordCODPayment(f.ctx, o.ID, admin.ID, "cash at door")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, pay.Status)
	assertDecimal(t, "240", pay.Amount)
	assert.Equal(t, admin.ID, pay.CreatedBy)

	got, err := f.orders.GetOrder(f.ctx, o.ID, admin.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaidAt)
	assert.Equal(t, models.OrderStatusFinished, got.Status)
	last := got.StatusHistory[len(got.StatusHistory)-1]
	assert.Equal(t, models.OrderStatusFinished, last.Status)
	assert.Equal(t, "payment recorded", last.Note)

	_, err = f.orders.RecordCODPayment(f.ctx, o.ID, admin.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	var completed int64
	require.NoError(t, f.repo.DB.Model(&models.Payment{}).
		Where("order_id = ? AND status = ?", o.ID, models.PaymentStatusCompleted).
		Count(&completed).Error)
	assert.EqualValues(t, 1, completed)
}

func TestOrderService_RecordCODPayment_DuplicateLedgerRow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	admin := f.user(t, "admin@example.com")
	u := f.user(t, "lan@example.com")
	p := f.product(t, "Bowl", "120", 5)
	o := f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 1})
	f.deliver(t, o.ID)

	require.NoError(t, f.repo.CreatePayment(f.ctx, &models.Payment{
		OrderID: o.ID, UserID: u.ID, Amount: o.TotalAmount,
		Method: models.PaymentMethodCOD, Status: models.PaymentStatusCompleted, CreatedBy: admin.ID,
	}))

	_, err := f.orders.RecordCODPayment(f.ctx, o.ID, admin.ID, "")
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "already exists")
}

func TestOrderService_RecordCODPayment_NotCOD(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	admin := f.user(t, "admin@example.com")
	u := f.user(t, "lan@example.com")
	p := f.product(t, "Bowl", "120", 5)
	o, err := f.orders.CreateOrder(f.ctx, u.ID, CreateOrderInput{
		Items:           []LineItem{{ProductID: p.ID, Quantity: 1}},
		ShippingAddress: address(),
		PaymentMethod:   "paypal",
	})
	require.NoError(t, err)
	f.deliver(t, o.ID)

	_, err = f.orders.RecordCODPayment(f.ctx, o.ID, admin.ID, "")
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "COD")

	got, err := f.orders.UpdateStatus(f.ctx, o.ID, StatusUpdate{Status: "finished"})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFinished, got.Status)
}

func TestOrderService_MarkPaid(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	admin := f.user(t, "admin@example.com")
	u := f.user(t, "lan@example.com")
	p := f.product(t, "Bowl", "120", 5)
	o := f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 1})
	f.deliver(t, o.ID)

	got, err := f.orders.MarkPaid(f.ctx, o.ID, admin.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	assert.Equal(t, models.OrderStatusFinished, got.Status)

	_, err = f.orders.MarkPaid(f.ctx, o.ID, admin.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOrderService_Reads(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	other := f.user(t, "minh@example.com")
	p := f.product(t, "Bowl", "10", 50)

	first := f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 1})
	f.order(t, u.ID, LineItem{ProductID: p.ID, Quantity: 1})
	f.order(t, other.ID, LineItem{ProductID: p.ID, Quantity: 1})

	mine, meta, err := f.orders.MyOrders(f.ctx, u.ID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.EqualValues(t, 2, meta.Total)

	_, err = f.orders.GetOrder(f.ctx, first.ID, other.ID, models.RoleUser)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.orders.GetOrder(f.ctx, first.ID, other.ID, models.RoleAdmin)
	assert.NoError(t, err)

	all, meta, err := f.orders.ListOrders(f.ctx, OrderQuery{Status: "pending", Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.EqualValues(t, 3, meta.Total)
	assert.True(t, meta.HasNext)

	_, _, err = f.orders.ListOrders(f.ctx, OrderQuery{Status: "lost"})
	assert.ErrorIs(t, err, ErrValidation)
}
