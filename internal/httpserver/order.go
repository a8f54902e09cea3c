package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/handmade_shop/internal/logging"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/transport"
)

type OrderHTTP struct {
	Svc *service.OrderService
}

func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "create_order_error", err)
	}
	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_order_error", "invalid body", err)
	}
	items := make([]service.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	o, err := h.Svc.CreateOrder(ctx, userID, service.CreateOrderInput{
		Items:           items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Note:            req.Note,
		IdempotencyKey:  c.Request().Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		return fail(l, "create_order_error", err)
	}

	l.Info("create_order_success", "order_id", o.ID)
	return c.JSON(http.StatusCreated, o)
}

func (h *OrderHTTP) MyOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.my_orders")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "my_orders_error", err)
	}
	page, size := pageParams(c)
	orders, meta, err := h.Svc.MyOrders(ctx, userID, page, size)
	if err != nil {
		return fail(l, "my_orders_error", err)
	}
	return c.JSON(http.StatusOK, paged(orders, meta))
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get_order")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "get_order_error", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "get_order_error", "id is not a uuid", err)
	}
	o, err := h.Svc.GetOrder(ctx, id, userID, currentRole(c))
	if err != nil {
		return fail(l, "get_order_error", err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "cancel_order_error", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "cancel_order_error", "id is not a uuid", err)
	}
	o, err := h.Svc.CancelOrder(ctx, id, userID)
	if err != nil {
		return fail(l, "cancel_order_error", err)
	}

	l.Info("cancel_order_success", "order_id", o.ID)
	return c.JSON(http.StatusOK, o)
}

// Admin

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.list_orders")

	from, to, err := dateRange(c)
	if err != nil {
		return badRequest(l, "list_orders_error", err.Error(), err)
	}
	page, size := pageParams(c)
	orders, meta, err := h.Svc.ListOrders(ctx, service.OrderQuery{
		Status: c.QueryParam("status"),
		From:   from,
		To:     to,
		Page:   page,
		Size:   size,
	})
	if err != nil {
		return fail(l, "list_orders_error", err)
	}
	return c.JSON(http.StatusOK, paged(orders, meta))
}

func (h *OrderHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.update_status")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "update_status_error", "id is not a uuid", err)
	}
	var req transport.StatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_status_error", "invalid body", err)
	}
	o, err := h.Svc.UpdateStatus(ctx, id, service.StatusUpdate{Status: req.Status, Force: req.Force, Note: req.Note})
	if err != nil {
		return fail(l, "update_status_error", err)
	}

	l.Info("update_status_success", "order_id", o.ID, "status", o.Status)
	return c.JSON(http.StatusOK, o)
}

func (h *OrderHTTP) RecordCODPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.record_cod_payment")

	adminID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "record_cod_payment_error", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "record_cod_payment_error", "id is not a uuid", err)
	}
	var req transport.PaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "record_cod_payment_error", "invalid body", err)
	}
	p, err := h.Svc.RecordCODPayment(ctx, id, adminID, req.Note)
	if err != nil {
		return fail(l, "record_cod_payment_error", err)
	}

	l.Info("record_cod_payment_success", "order_id", id, "payment_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

// MarkPaid is kept for older clients and answers with a Deprecation header.
func (h *OrderHTTP) MarkPaid(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.mark_paid")

	c.Response().Header().Set("Deprecation", "true")
	c.Response().Header().Set("Link", `</api/admin/orders/`+c.Param("id")+`/payments/cod>; rel="successor-version"`)

	adminID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "mark_paid_error", err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "mark_paid_error", "id is not a uuid", err)
	}
	o, err := h.Svc.MarkPaid(ctx, id, adminID)
	if err != nil {
		return fail(l, "mark_paid_error", err)
	}

	l.Info("mark_paid_success", "order_id", id)
	return c.JSON(http.StatusOK, o)
}
