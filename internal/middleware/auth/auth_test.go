package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/tokens"
)

var issuer = &tokens.Issuer{
	AccessSecret:  []byte("access-secret"),
	RefreshSecret: []byte("refresh-secret"),
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    time.Hour,
}

type fakeRefresher struct {
	calls int
	role  string
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*service.Session, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	pair, err := issuer.Issue(uuid.New(), f.role, time.Now())
	if err != nil {
		return nil, err
	}
	return &service.Session{Tokens: pair}, nil
}

func pairAt(t *testing.T, role string, now time.Time) (uuid.UUID, *tokens.Pair) {
	t.Helper()
	id := uuid.New()
	p, err := issuer.Issue(id, role, now)
	require.NoError(t, err)
	return id, p
}

func run(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, echo.Context, bool, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	called := false
	err := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)
	return rec, c, called, err
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he), "expected HTTPError, got %v", err)
	return he.Code
}

func TestRequireAuth_ValidCookie(t *testing.T) {
	t.Parallel()
	m := NewAutoRefreshMiddleware(issuer.AccessSecret, &fakeRefresher{}, false)

	id, p := pairAt(t, models.RoleUser, time.Now())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: p.AccessToken})

	_, c, called, err := run(m.RequireAuth, req)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, id.String(), c.Get(UserIDKey))
	assert.Equal(t, models.RoleUser, c.Get(RoleKey))
}

func TestRequireAuth_BearerHeader(t *testing.T) {
	t.Parallel()
	m := NewAutoRefreshMiddleware(issuer.AccessSecret, &fakeRefresher{}, false)

	_, p := pairAt(t, models.RoleUser, time.Now())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+p.AccessToken)

	_, _, called, err := run(m.RequireAuth, req)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRequireAuth_Rejects(t *testing.T) {
	t.Parallel()
	m := NewAutoRefreshMiddleware(issuer.AccessSecret, &fakeRefresher{}, false)

	_, _, called, err := run(m.RequireAuth, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: "not-a-jwt"})
	_, _, called, err = run(m.RequireAuth, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
}

func TestRequireAdmin_ForbidsUsers(t *testing.T) {
	t.Parallel()
	m := NewAutoRefreshMiddleware(issuer.AccessSecret, &fakeRefresher{}, false)

	_, p := pairAt(t, models.RoleUser, time.Now())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: p.AccessToken})
	_, _, called, err := run(m.RequireAdmin, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusForbidden, statusOf(t, err))

	_, p = pairAt(t, models.RoleAdmin, time.Now())
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: p.AccessToken})
	_, _, called, err = run(m.RequireAdmin, req)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestRequireAuth_RefreshesExpiredAccess(t *testing.T) {
	t.Parallel()
	ref := &fakeRefresher{role: models.RoleUser}
	m := NewAutoRefreshMiddleware(issuer.AccessSecret, ref, false)

	_, old := pairAt(t, models.RoleUser, time.Now().Add(-time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: old.AccessToken})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "refresh"})

	rec, _, called, err := run(m.RequireAuth, req)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 1, ref.calls)

	names := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		names[ck.Name] = ck.Value != ""
	}
	assert.True(t, names[tokens.AccessCookie])
	assert.True(t, names[tokens.RefreshCookie])
}

func TestRequireAuth_RefreshWithoutAccessCookie(t *testing.T) {
	t.Parallel()
	ref := &fakeRefresher{role: models.RoleUser}
	m := NewAutoRefreshMiddleware(issuer.AccessSecret, ref, false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "refresh"})

	_, _, called, err := run(m.RequireAuth, req)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, 1, ref.calls)
}

func TestRequireAuth_RefreshFailureClearsCookies(t *testing.T) {
	t.Parallel()
	m := NewAutoRefreshMiddleware(issuer.AccessSecret, &fakeRefresher{err: service.ErrUnauthorized}, false)

	_, old := pairAt(t, models.RoleUser, time.Now().Add(-time.Hour))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: tokens.AccessCookie, Value: old.AccessToken})
	req.AddCookie(&http.Cookie{Name: tokens.RefreshCookie, Value: "refresh"})

	rec, _, called, err := run(m.RequireAuth, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))

	cleared := 0
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			cleared++
		}
	}
	assert.Equal(t, 2, cleared)
}
