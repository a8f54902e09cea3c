package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer() *echo.Echo {
	e := echo.New()
	cfg := DefaultConfig()
	cfg.SkipPrefixes = []string{"/health"}
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/api/cart", ok)
	e.POST("/api/cart", ok)
	e.POST("/health/live", ok)
	return e
}

func TestMiddleware_IssuesTokenOnSafeMethods(t *testing.T) {
	t.Parallel()
	e := newServer()

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	token := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, token)

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "XSRF-TOKEN" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, token, cookie.Value)
	assert.False(t, cookie.HttpOnly)
}

func TestMiddleware_ChecksMutations(t *testing.T) {
	t.Parallel()
	e := newServer()

	post := func(token, origin string) int {
		req := httptest.NewRequest(http.MethodPost, "http://shop.test/api/cart", nil)
		req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if token != "" {
			req.Header.Set("X-CSRF-Token", token)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, post("tok", "http://shop.test"))
	assert.Equal(t, http.StatusForbidden, post("", "http://shop.test"))
	assert.Equal(t, http.StatusForbidden, post("other", "http://shop.test"))
	assert.Equal(t, http.StatusForbidden, post("tok", "http://evil.test"))
	assert.Equal(t, http.StatusForbidden, post("tok", ""))
}

func TestMiddleware_SkipsBearerAndPrefixes(t *testing.T) {
	t.Parallel()
	e := newServer()

	req := httptest.NewRequest(http.MethodPost, "/api/cart", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/health/live", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
