package httpserver

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/sheets"
	"github.com/Skotchmaster/handmade_shop/internal/tokens"
	"github.com/Skotchmaster/handmade_shop/internal/transport"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.serve(http.MethodGet, "/health/live", nil, nil).Code)
	assert.Equal(t, http.StatusOK, env.serve(http.MethodGet, "/health/ready", nil, nil).Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(models.RoleUser, "lan@example.com")
	admin := env.user(models.RoleAdmin, "admin@example.com")

	rec := env.serve(http.MethodGet, "/api/admin/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.serve(http.MethodGet, "/api/admin/users", nil, u)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.serve(http.MethodGet, "/api/admin/users", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[struct {
		Data []models.User `json:"data"`
	}](t, rec)
	require.Len(t, page.Data, 1)
	assert.Equal(t, u.ID, page.Data[0].ID)
}

func TestAuthFlowThroughRoutes(t *testing.T) {
	env := newTestEnv(t)
	creds := transport.LoginRequest{Email: "mai@example.com", Password: testPassword}

	rec := env.serve(http.MethodPost, "/api/auth/register", transport.RegisterRequest{
		Name:     "Mai",
		Email:    creds.Email,
		Password: creds.Password,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, decode[transport.RegisterResponse](t, rec).EmailSent)

	rec = env.serve(http.MethodPost, "/api/auth/login", creds, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	link, ok := env.mail.last().Data["link"].(string)
	require.True(t, ok)
	u, err := url.Parse(link)
	require.NoError(t, err)
	rec = env.serve(http.MethodGet, "/api/auth/verify-email?token="+url.QueryEscape(u.Query().Get("token")), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.serve(http.MethodPost, "/api/auth/login", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := decode[transport.SessionResponse](t, rec)
	assert.NotEmpty(t, sess.AccessToken)

	cookies := map[string]*http.Cookie{}
	for _, ck := range rec.Result().Cookies() {
		cookies[ck.Name] = ck
	}
	require.Contains(t, cookies, tokens.AccessCookie)
	require.Contains(t, cookies, tokens.RefreshCookie)
	assert.True(t, cookies[tokens.RefreshCookie].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.AddCookie(cookies[tokens.AccessCookie])
	me := httptest.NewRecorder()
	env.e.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code, me.Body.String())
	assert.Equal(t, creds.Email, decode[models.User](t, me).Email)
}

func TestListProductsRejectsBadPrice(t *testing.T) {
	env := newTestEnv(t)

	rec := env.serve(http.MethodGet, "/api/products?min_price=cheap", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[ErrorBody](t, rec).Kind)
}

func TestExportStock(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(models.RoleAdmin, "admin@example.com")
	env.product("Blue vase", "120", 4)

	rec := env.serve(http.MethodGet, "/api/admin/products/export", nil, admin)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, mimeXLSX, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), ".xlsx")

	f, err := xlsx.OpenBinary(rec.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	assert.Equal(t, 2, f.Sheets[0].MaxRow)
}

func TestBulkImportUpload(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(models.RoleAdmin, "admin@example.com")
	p := env.product("Mug", "30", 2)

	sheet := xlsx.NewFile()
	s, err := sheet.AddSheet("Imports")
	require.NoError(t, err)
	for _, cells := range [][]string{
		sheets.ImportHeader,
		{p.ID.String(), "3", "12", "workshop", ""},
		{"no-such-product", "1", "1"},
	} {
		row := s.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}
	var file bytes.Buffer
	require.NoError(t, sheet.Write(&file))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "imports.xlsx")
	require.NoError(t, err)
	_, err = part.Write(file.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/imports/bulk", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, env.bearer(admin))
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[service.BulkResult](t, rec)
	require.Len(t, res.Created, 1)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 3, res.Failed[0].Row)
	assert.Equal(t, 5, env.stock(p.ID))
}

func TestBulkImportRequiresFile(t *testing.T) {
	env := newTestEnv(t)
	admin := env.user(models.RoleAdmin, "admin@example.com")

	rec := env.serve(http.MethodPost, "/api/admin/imports/bulk", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
