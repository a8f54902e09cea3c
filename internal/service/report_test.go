package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestReportService(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.user(t, "lan@example.com")
	admin := uuid.New()
	bowl := f.product(t, "Bowl", "25", 10)
	cup := f.product(t, "Cup", "10", 10)
	vase := f.product(t, "Vase", "30", 10)

	place := func(p uuid.UUID, qty int, at time.Time, paid bool) {
		o := f.order(t, u.ID, LineItem{ProductID: p, Quantity: qty})
		if paid {
			f.deliver(t, o.ID)
			_, err := f.orders.RecordCODPayment(f.ctx, o.ID, admin, "")
			require.NoError(t, err)
		}
		require.NoError(t, f.repo.UpdateOrderFields(f.ctx, o.ID, map[string]any{"created_at": at}))
	}
	place(bowl.ID, 2, day(2025, time.March, 10, 10), true)
	place(cup.ID, 1, day(2025, time.April, 2, 9), true)
	place(vase.ID, 1, day(2025, time.March, 11, 8), false)

	all, err := f.reports.OrderStats(f.ctx, nil, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.TotalOrders)
	assertDecimal(t, "90", all.TotalRevenue)

	paid := true
	ps, err := f.reports.OrderStats(f.ctx, nil, nil, &paid)
	require.NoError(t, err)
	assert.EqualValues(t, 2, ps.TotalOrders)
	assertDecimal(t, "60", ps.TotalRevenue)

	from, to := day(2025, time.March, 1, 0), day(2025, time.March, 31, 23)
	daily, err := f.reports.DailyRevenue(f.ctx, &from, &to)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, "2025-03-10", daily[0].Period)
	assertDecimal(t, "50", daily[0].Revenue)
	assert.EqualValues(t, 1, daily[0].Orders)

	_, err = f.reports.DailyRevenue(f.ctx, &to, &from)
	assert.ErrorIs(t, err, ErrValidation)

	monthly, err := f.reports.MonthlyRevenue(f.ctx, 2025)
	require.NoError(t, err)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2025-03", monthly[0].Period)
	assert.Equal(t, "2025-04", monthly[1].Period)
	assertDecimal(t, "10", monthly[1].Revenue)

	_, err = f.reports.MonthlyRevenue(f.ctx, 1999)
	assert.ErrorIs(t, err, ErrValidation)

	pay, err := f.reports.PaymentStats(f.ctx, nil, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, pay.TotalPayments)
	assertDecimal(t, "60", pay.TotalRevenue)

	items, meta, err := f.reports.ListPayments(f.ctx, PaymentQuery{Method: "cod", Status: "completed"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.EqualValues(t, 2, meta.Total)

	_, _, err = f.reports.ListPayments(f.ctx, PaymentQuery{Method: "bitcoin"})
	assert.ErrorIs(t, err, ErrValidation)
}
