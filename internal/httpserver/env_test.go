package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/handmade_shop/internal/db/dbtest"
	"github.com/Skotchmaster/handmade_shop/internal/hash"
	authmw "github.com/Skotchmaster/handmade_shop/internal/middleware/auth"
	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/mykafka"
	"github.com/Skotchmaster/handmade_shop/internal/notify"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/tokens"
)

const testPassword = "secret123"

type captureSender struct {
	mu  sync.Mutex
	got []notify.Message
}

func (s *captureSender) Send(ctx context.Context, m notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, m)
	return nil
}

func (s *captureSender) last() notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.got) == 0 {
		return notify.Message{}
	}
	return s.got[len(s.got)-1]
}

type testEnv struct {
	t      *testing.T
	e      *echo.Echo
	repo   *repo.GormRepo
	issuer *tokens.Issuer
	mail   *captureSender
	deps   *Deps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	r := &repo.GormRepo{DB: dbtest.Open(t)}
	events := mykafka.Nop{}
	mail := &captureSender{}
	issuer := &tokens.Issuer{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	}

	catalog := &service.CatalogService{Repo: r, Events: events}
	orders := &service.OrderService{Repo: r, Events: events, Notifier: mail, Catalog: catalog}
	accounts := &service.AccountService{Repo: r, Issuer: issuer, Notifier: mail, Events: events, ClientURL: "http://shop.test"}

	d := &Deps{
		Auth:      &AuthHTTP{Svc: accounts},
		Catalog:   &CatalogHTTP{Svc: catalog},
		Cart:      &CartHTTP{Svc: &service.CartService{Repo: r, Orders: orders}},
		Favorites: &FavoriteHTTP{Svc: &service.FavoriteService{Repo: r}},
		Orders:    &OrderHTTP{Svc: orders},
		Imports:   &ImportHTTP{Svc: &service.ImportService{Repo: r, Events: events, Catalog: catalog}},
		Reports:   &ReportHTTP{Svc: &service.ReportService{Repo: r}},
		Users:     &UserHTTP{Svc: &service.UserService{Repo: r}},
		Settings:  &SettingsHTTP{Svc: &service.SettingsService{Repo: r}},
		AuthMW:    authmw.NewAutoRefreshMiddleware(issuer.AccessSecret, accounts, false),
		Ready:     r.Ping,
	}

	e := echo.New()
	Register(e, d)
	return &testEnv{t: t, e: e, repo: r, issuer: issuer, mail: mail, deps: d}
}

func (env *testEnv) user(role, email string) *models.User {
	env.t.Helper()
	pw, err := hash.HashPassword(testPassword)
	require.NoError(env.t, err)
	u := &models.User{
		Name:            "Lan",
		Email:           email,
		PasswordHash:    pw,
		Role:            role,
		IsActive:        true,
		IsEmailVerified: true,
	}
	require.NoError(env.t, env.repo.CreateUser(context.Background(), u))
	return u
}

func (env *testEnv) product(name, price string, stock int) *models.Product {
	env.t.Helper()
	ctx := context.Background()
	c := &models.Category{Name: "Ceramics " + uuid.NewString()[:8], IsActive: true}
	require.NoError(env.t, env.repo.CreateCategory(ctx, c))
	p := &models.Product{
		Name:           name,
		Slug:           uuid.NewString(),
		NameNormalized: name,
		Price:          decimal.RequireFromString(price),
		CategoryID:     c.ID,
		Stock:          stock,
	}
	require.NoError(env.t, env.repo.CreateProduct(ctx, p))
	return p
}

func (env *testEnv) stock(id uuid.UUID) int {
	env.t.Helper()
	n, err := env.repo.GetStock(context.Background(), id)
	require.NoError(env.t, err)
	return n
}

func (env *testEnv) bearer(u *models.User) string {
	env.t.Helper()
	p, err := env.issuer.Issue(u.ID, u.Role, time.Now())
	require.NoError(env.t, err)
	return "Bearer " + p.AccessToken
}

// doJSONRequest builds a context for calling a handler directly, with the
// user already placed where the auth middleware would put it.
func (env *testEnv) doJSONRequest(method, path string, body any, as *models.User) (*httptest.ResponseRecorder, echo.Context) {
	env.t.Helper()
	req := httptest.NewRequest(method, path, jsonBody(env.t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)
	if as != nil {
		c.Set(authmw.UserIDKey, as.ID.String())
		c.Set(authmw.RoleKey, as.Role)
	}
	return rec, c
}

// serve sends the request through the full router.
func (env *testEnv) serve(method, path string, body any, as *models.User) *httptest.ResponseRecorder {
	env.t.Helper()
	req := httptest.NewRequest(method, path, jsonBody(env.t, body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if as != nil {
		req.Header.Set(echo.HeaderAuthorization, env.bearer(as))
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, body any) *bytes.Reader {
	t.Helper()
	if body == nil {
		return bytes.NewReader(nil)
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// httpError unwraps the error a handler returned into its status and body.
func httpError(t *testing.T, err error) (int, ErrorBody) {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "want *echo.HTTPError, got %v", err)
	body, ok := he.Message.(ErrorBody)
	require.True(t, ok, "want ErrorBody, got %T", he.Message)
	return he.Code, body
}

func shipping() models.ShippingAddress {
	return models.ShippingAddress{
		FullName:    "Nguyen Lan",
		Phone:       "0912345678",
		AddressLine: "12 Hang Bac",
		City:        "Hanoi",
		PostalCode:  "100000",
	}
}
