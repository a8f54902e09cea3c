package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/handmade_shop/internal/service"
)

// ErrorBody is the JSON shape of every failed response.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

var errorKinds = []struct {
	err    error
	status int
	kind   string
}{
	{service.ErrValidation, http.StatusBadRequest, "validation"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrOutOfStock, http.StatusConflict, "out_of_stock"},
	{service.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{service.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{service.ErrAlreadyDeleted, http.StatusConflict, "already_deleted"},
	{service.ErrConflict, http.StatusConflict, "conflict"},
	{service.ErrForbidden, http.StatusForbidden, "forbidden"},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{service.ErrTooManyRequests, http.StatusTooManyRequests, "too_many_requests"},
}

// fail logs err under event and turns it into the response for its kind.
// Unknown errors become a 500 without leaking their text.
func fail(l *slog.Logger, event string, err error) error {
	for _, k := range errorKinds {
		if !errors.Is(err, k.err) {
			continue
		}
		body := ErrorBody{Kind: k.kind, Message: strings.TrimPrefix(err.Error(), k.err.Error()+": ")}
		var oos *service.OutOfStockError
		if errors.As(err, &oos) {
			body.Details = map[string]any{
				"product_id": oos.ProductID,
				"name":       oos.Name,
				"available":  oos.Available,
				"requested":  oos.Requested,
			}
		}
		l.Warn(event, "status", k.status, "reason", body.Message, "error", err)
		return echo.NewHTTPError(k.status, body)
	}
	l.Error(event, "status", http.StatusInternalServerError, "reason", "internal error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, ErrorBody{Kind: "internal", Message: "internal error"})
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", http.StatusBadRequest, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, ErrorBody{Kind: "validation", Message: reason})
}

func unauthorized(l *slog.Logger, event string, err error) error {
	l.Warn(event, "status", http.StatusUnauthorized, "reason", "unauthorized", "error", err)
	return echo.NewHTTPError(http.StatusUnauthorized, ErrorBody{Kind: "unauthorized", Message: "unauthorized"})
}
