package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/handmade_shop/internal/logging"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/util"
)

type ReportHTTP struct {
	Svc *service.ReportService
}

func (h *ReportHTTP) OrderStats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "report.order_stats")

	from, to, err := dateRange(c)
	if err != nil {
		return badRequest(l, "order_stats_error", err.Error(), err)
	}
	paid, err := boolQuery(c, "paid")
	if err != nil {
		return badRequest(l, "order_stats_error", "paid must be a boolean", err)
	}
	stats, err := h.Svc.OrderStats(ctx, from, to, paid)
	if err != nil {
		return fail(l, "order_stats_error", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *ReportHTTP) DailyRevenue(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "report.daily_revenue")

	from, to, err := dateRange(c)
	if err != nil {
		return badRequest(l, "daily_revenue_error", err.Error(), err)
	}
	points, err := h.Svc.DailyRevenue(ctx, from, to)
	if err != nil {
		return fail(l, "daily_revenue_error", err)
	}
	return c.JSON(http.StatusOK, points)
}

func (h *ReportHTTP) MonthlyRevenue(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "report.monthly_revenue")

	year := util.ParseIntDefault(c.QueryParam("year"), time.Now().UTC().Year())
	points, err := h.Svc.MonthlyRevenue(ctx, year)
	if err != nil {
		return fail(l, "monthly_revenue_error", err)
	}
	return c.JSON(http.StatusOK, points)
}

func (h *ReportHTTP) PaymentStats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.payment_stats")

	from, to, err := dateRange(c)
	if err != nil {
		return badRequest(l, "payment_stats_error", err.Error(), err)
	}
	stats, err := h.Svc.PaymentStats(ctx, from, to)
	if err != nil {
		return fail(l, "payment_stats_error", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *ReportHTTP) ListPayments(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.list_payments")

	from, to, err := dateRange(c)
	if err != nil {
		return badRequest(l, "list_payments_error", err.Error(), err)
	}
	page, size := pageParams(c)
	items, meta, err := h.Svc.ListPayments(ctx, service.PaymentQuery{
		From:   from,
		To:     to,
		Method: c.QueryParam("method"),
		Status: c.QueryParam("status"),
		Page:   page,
		Size:   size,
	})
	if err != nil {
		return fail(l, "list_payments_error", err)
	}
	return c.JSON(http.StatusOK, paged(items, meta))
}
