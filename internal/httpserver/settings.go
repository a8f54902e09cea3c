package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/handmade_shop/internal/logging"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/transport"
)

type SettingsHTTP struct {
	Svc *service.SettingsService
}

func (h *SettingsHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "settings.get")

	s, err := h.Svc.Get(ctx)
	if err != nil {
		return fail(l, "get_settings_error", err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *SettingsHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "settings.update")

	var req transport.SettingsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_settings_error", "invalid body", err)
	}
	s, err := h.Svc.Update(ctx, req.Promotions, req.Policies)
	if err != nil {
		return fail(l, "update_settings_error", err)
	}

	l.Info("update_settings_success")
	return c.JSON(http.StatusOK, s)
}
