package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/handmade_shop/internal/logging"
	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/tokens"
)

// Context keys set for authenticated requests.
const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// Refresher rotates a refresh token into a new session.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*service.Session, error)
}

type AutoRefreshMiddleware struct {
	AccessSecret []byte
	Refresher    Refresher
	CookieSecure bool
}

func NewAutoRefreshMiddleware(secret []byte, r Refresher, secure bool) *AutoRefreshMiddleware {
	return &AutoRefreshMiddleware{AccessSecret: secret, Refresher: r, CookieSecure: secure}
}

type ValidatorFunc func(claims *tokens.AccessClaims) error

func (m *AutoRefreshMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, nil)
}

func (m *AutoRefreshMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireAuthWithValidator(next, func(claims *tokens.AccessClaims) error {
		if claims.Role != models.RoleAdmin {
			return deny(http.StatusForbidden, "forbidden", "admin access required")
		}
		return nil
	})
}

func (m *AutoRefreshMiddleware) requireAuthWithValidator(next echo.HandlerFunc, validator ValidatorFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context()).With("middleware", "auth")

		raw := accessToken(c)
		if raw != "" {
			claims, err := tokens.AccessClaimsFromToken(raw, m.AccessSecret)
			if err == nil {
				if validator != nil {
					if vErr := validator(claims); vErr != nil {
						return vErr
					}
				}
				setUserContext(c, claims)
				return next(c)
			}
			if !errors.Is(err, jwt.ErrTokenExpired) {
				l.Warn("auth_failed", "status", 401, "reason", "invalid access token", "error", err)
				m.clearAuthCookies(c)
				return deny(http.StatusUnauthorized, "unauthorized", "invalid access token")
			}
		}

		// The access cookie expires together with its token, so a missing
		// access token still gets a refresh attempt.
		refreshCookie, err := c.Cookie(tokens.RefreshCookie)
		if err != nil || refreshCookie.Value == "" {
			if raw == "" {
				return deny(http.StatusUnauthorized, "unauthorized", "missing access token")
			}
			m.clearAuthCookies(c)
			return deny(http.StatusUnauthorized, "unauthorized", "refresh token missing")
		}

		sess, err := m.Refresher.Refresh(c.Request().Context(), refreshCookie.Value)
		if err != nil {
			l.Warn("auth_refresh_failed", "status", 401, "error", err)
			m.clearAuthCookies(c)
			return deny(http.StatusUnauthorized, "unauthorized", "session expired, log in again")
		}
		for _, ck := range tokens.PairCookies(sess.Tokens, m.CookieSecure) {
			c.SetCookie(ck)
		}

		claims, err := tokens.AccessClaimsFromToken(sess.Tokens.AccessToken, m.AccessSecret)
		if err != nil {
			m.clearAuthCookies(c)
			return deny(http.StatusUnauthorized, "unauthorized", "new access token invalid")
		}
		if validator != nil {
			if vErr := validator(claims); vErr != nil {
				return vErr
			}
		}
		l.Info("auth_refreshed", "user_id", claims.Subject)
		setUserContext(c, claims)
		return next(c)
	}
}

// accessToken prefers the cookie and falls back to a bearer header.
func accessToken(c echo.Context) string {
	if ck, err := c.Cookie(tokens.AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if v, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (m *AutoRefreshMiddleware) clearAuthCookies(c echo.Context) {
	for _, ck := range tokens.ClearCookies(m.CookieSecure) {
		c.SetCookie(ck)
	}
}

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set(UserIDKey, claims.Subject)
	c.Set(RoleKey, claims.Role)
}

func deny(status int, kind, msg string) error {
	return echo.NewHTTPError(status, map[string]string{"kind": kind, "message": msg})
}
