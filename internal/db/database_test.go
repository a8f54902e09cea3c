package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/handmade_shop/internal/db"
	"github.com/Skotchmaster/handmade_shop/internal/db/dbtest"
	"github.com/Skotchmaster/handmade_shop/internal/models"
)

func TestOpen_Validation(t *testing.T) {
	t.Parallel()

	_, err := db.Open(context.Background(), db.DriverPostgres, "")
	require.Error(t, err)

	_, err = db.Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
}

func TestNormalizeLegacyStatuses(t *testing.T) {
	t.Parallel()

	gdb := dbtest.Open(t)
	ctx := context.Background()

	order := models.Order{
		UserID:        uuid.New(),
		PaymentMethod: models.PaymentMethodCOD,
		TotalAmount:   decimal.NewFromInt(10),
		Status:        models.OrderStatus("confirmed"),
		ShippingAddr:  models.ShippingAddress{FullName: "A", Phone: "1", AddressLine: "x", City: "y", PostalCode: "z"},
		StatusHistory: []models.StatusChange{
			{Status: models.OrderStatus("shipping"), ChangedAt: time.Now()},
		},
	}
	require.NoError(t, gdb.Create(&order).Error)

	n, err := db.NormalizeLegacyStatuses(ctx, gdb)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var raw string
	require.NoError(t, gdb.Raw("SELECT status FROM orders WHERE id = ?", order.ID).Scan(&raw).Error)
	assert.Equal(t, "processing", raw)

	require.NoError(t, gdb.Raw("SELECT status FROM status_changes WHERE order_id = ?", order.ID).Scan(&raw).Error)
	assert.Equal(t, "shipped", raw)

	n, err = db.NormalizeLegacyStatuses(ctx, gdb)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMigrate_SingleCompletedPaymentIndex(t *testing.T) {
	t.Parallel()

	gdb := dbtest.Open(t)
	orderID := uuid.New()
	now := time.Now()

	first := models.Payment{OrderID: orderID, UserID: uuid.New(), Amount: decimal.NewFromInt(5),
		Method: models.PaymentMethodCOD, Status: models.PaymentStatusCompleted, PaidAt: &now, CreatedBy: uuid.New()}
	require.NoError(t, gdb.Create(&first).Error)

	dup := first
	dup.ID = uuid.Nil
	require.Error(t, gdb.Create(&dup).Error)

	failed := first
	failed.ID = uuid.Nil
	failed.Status = models.PaymentStatusFailed
	require.NoError(t, gdb.Create(&failed).Error)
}

func TestMigrate_ProductImagesRoundTrip(t *testing.T) {
	t.Parallel()

	gdb := dbtest.Open(t)
	p := models.Product{
		Name:           "Vase",
		Slug:           "vase",
		NameNormalized: "vase",
		Price:          decimal.NewFromInt(10),
		CategoryID:     uuid.New(),
		Images:         pq.StringArray{"a.jpg", "b c.jpg"},
	}
	require.NoError(t, gdb.Create(&p).Error)

	var raw string
	require.NoError(t, gdb.Raw("SELECT images FROM products WHERE id = ?", p.ID).Scan(&raw).Error)
	assert.Equal(t, `{a.jpg,"b c.jpg"}`, raw)

	var got models.Product
	require.NoError(t, gdb.First(&got, "id = ?", p.ID).Error)
	assert.Equal(t, []string{"a.jpg", "b c.jpg"}, []string(got.Images))
}
