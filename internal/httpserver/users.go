package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/handmade_shop/internal/logging"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/transport"
)

type UserHTTP struct {
	Svc *service.UserService
}

func (h *UserHTTP) ListCustomers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list_customers")

	page, size := pageParams(c)
	users, meta, err := h.Svc.ListCustomers(ctx, page, size)
	if err != nil {
		return fail(l, "list_customers_error", err)
	}
	return c.JSON(http.StatusOK, paged(users, meta))
}

func (h *UserHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.get")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "get_user_error", "id is not a uuid", err)
	}
	u, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_user_error", err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHTTP) ChangeRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.change_role")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "change_role_error", "id is not a uuid", err)
	}
	var req transport.RoleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "change_role_error", "invalid body", err)
	}
	if err := h.Svc.ChangeRole(ctx, id, req.Role); err != nil {
		return fail(l, "change_role_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHTTP) SetActive(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.set_active")

	actorID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "set_active_error", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "set_active_error", "id is not a uuid", err)
	}
	var req transport.ActiveRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_active_error", "invalid body", err)
	}
	u, err := h.Svc.SetActive(ctx, actorID, id, req.IsActive)
	if err != nil {
		return fail(l, "set_active_error", err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.delete")

	actorID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "delete_user_error", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "delete_user_error", "id is not a uuid", err)
	}
	if err := h.Svc.Delete(ctx, actorID, id); err != nil {
		return fail(l, "delete_user_error", err)
	}

	l.Info("delete_user_success", "user_id", id)
	return c.NoContent(http.StatusNoContent)
}
