package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/handmade_shop/internal/db/dbtest"
	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/notify"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
	"github.com/Skotchmaster/handmade_shop/internal/tokens"
)

type publishedEvent struct {
	Topic string
	Event Event
}

type recordingPublisher struct {
	mu  sync.Mutex
	got []publishedEvent
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev, _ := event.(Event)
	p.got = append(p.got, publishedEvent{Topic: topic, Event: ev})
	return nil
}

func (p *recordingPublisher) types(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.got {
		if e.Topic == topic {
			out = append(out, e.Event.Type)
		}
	}
	return out
}

type recordingSender struct {
	mu   sync.Mutex
	fail bool
	got  []notify.Message
}

func (s *recordingSender) Send(ctx context.Context, m notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp down")
	}
	s.got = append(s.got, m)
	return nil
}

func (s *recordingSender) last() notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.got) == 0 {
		return notify.Message{}
	}
	return s.got[len(s.got)-1]
}

type fixture struct {
	ctx      context.Context
	repo     *repo.GormRepo
	events   *recordingPublisher
	mail     *recordingSender
	catalog  *CatalogService
	orders   *OrderService
	imports  *ImportService
	carts    *CartService
	accounts *AccountService
	reports  *ReportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	r := &repo.GormRepo{DB: dbtest.Open(t)}
	f := &fixture{
		ctx:    context.Background(),
		repo:   r,
		events: &recordingPublisher{},
		mail:   &recordingSender{},
	}
	f.catalog = &CatalogService{Repo: r, Events: f.events}
	f.orders = &OrderService{Repo: r, Events: f.events, Notifier: f.mail, Catalog: f.catalog}
	f.imports = &ImportService{Repo: r, Events: f.events, Catalog: f.catalog}
	f.carts = &CartService{Repo: r, Orders: f.orders}
	f.accounts = &AccountService{
		Repo:      r,
		Notifier:  f.mail,
		Events:    f.events,
		ClientURL: "http://shop.test",
		Issuer: &tokens.Issuer{
			AccessSecret:  []byte("access-secret"),
			RefreshSecret: []byte("refresh-secret"),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    time.Hour,
		},
	}
	f.reports = &ReportService{Repo: r}
	return f
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{
		Name:            "Lan",
		Email:           email,
		PasswordHash:    "x",
		Role:            models.RoleUser,
		IsActive:        true,
		IsEmailVerified: true,
	}
	require.NoError(t, f.repo.CreateUser(f.ctx, u))
	return u
}

func (f *fixture) category(t *testing.T) *models.Category {
	t.Helper()
	c := &models.Category{Name: "Ceramics " + uuid.NewString()[:8], IsActive: true}
	require.NoError(t, f.repo.CreateCategory(f.ctx, c))
	return c
}

// product inserts a row directly so tests can start from any stock level.
func (f *fixture) product(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	c := f.category(t)
	p := &models.Product{
		Name:           name,
		Slug:           uuid.NewString(),
		NameNormalized: name,
		Price:          decimal.RequireFromString(price),
		CategoryID:     c.ID,
		Stock:          stock,
	}
	require.NoError(t, f.repo.CreateProduct(f.ctx, p))
	return p
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	n, err := f.repo.GetStock(f.ctx, id)
	require.NoError(t, err)
	return n
}

func address() models.ShippingAddress {
	return models.ShippingAddress{
		FullName:    "Nguyen Lan",
		Phone:       "0912345678",
		AddressLine: "12 Hang Bac",
		City:        "Hanoi",
		PostalCode:  "100000",
	}
}

func (f *fixture) order(t *testing.T, userID uuid.UUID, items ...LineItem) *models.Order {
	t.Helper()
	o, err := f.orders.CreateOrder(f.ctx, userID, CreateOrderInput{
		Items:           items,
		ShippingAddress: address(),
		PaymentMethod:   "COD",
	})
	require.NoError(t, err)
	return o
}

// deliver walks the order through the admin transitions up to delivered.
func (f *fixture) deliver(t *testing.T, orderID uuid.UUID) {
	t.Helper()
	for _, st := range []string{"processing", "shipped", "delivered"} {
		_, err := f.orders.UpdateStatus(f.ctx, orderID, StatusUpdate{Status: st})
		require.NoError(t, err)
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}
