package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/handmade_shop/internal/logging"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/transport"
)

const headerIdempotencyKey = "Idempotency-Key"

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get_cart")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "get_cart_error", err)
	}
	cart, err := h.Svc.GetCart(ctx, userID)
	if err != nil {
		return fail(l, "get_cart_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) AddItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add_item")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "add_item_error", err)
	}
	var req transport.CartItemRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_item_error", "invalid body", err)
	}
	cart, err := h.Svc.AddItem(ctx, userID, req.ProductID, req.Quantity)
	if err != nil {
		return fail(l, "add_item_error", err)
	}

	l.Info("add_item_success", "product_id", req.ProductID)
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) UpdateItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.update_item")

	userID, productID, err := userAndProduct(c, "productId")
	if err != nil {
		return badRequest(l, "update_item_error", "invalid product id", err)
	}
	var req transport.QuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_item_error", "invalid body", err)
	}
	cart, err := h.Svc.UpdateItem(ctx, userID, productID, req.Quantity)
	if err != nil {
		return fail(l, "update_item_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) RemoveItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove_item")

	userID, productID, err := userAndProduct(c, "productId")
	if err != nil {
		return badRequest(l, "remove_item_error", "invalid product id", err)
	}
	cart, err := h.Svc.RemoveItem(ctx, userID, productID)
	if err != nil {
		return fail(l, "remove_item_error", err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "clear_cart_error", err)
	}
	if err := h.Svc.Clear(ctx, userID); err != nil {
		return fail(l, "clear_cart_error", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "checkout_error", err)
	}
	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "checkout_error", "invalid body", err)
	}
	o, err := h.Svc.Checkout(ctx, userID, checkoutInput(c, req))
	if err != nil {
		return fail(l, "checkout_error", err)
	}

	l.Info("checkout_success", "order_id", o.ID)
	return c.JSON(http.StatusCreated, o)
}

func (h *CartHTTP) CheckoutItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.checkout_item")

	userID, productID, err := userAndProduct(c, "productId")
	if err != nil {
		return badRequest(l, "checkout_item_error", "invalid product id", err)
	}
	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "checkout_item_error", "invalid body", err)
	}
	o, err := h.Svc.CheckoutItem(ctx, userID, productID, checkoutInput(c, req))
	if err != nil {
		return fail(l, "checkout_item_error", err)
	}

	l.Info("checkout_item_success", "order_id", o.ID)
	return c.JSON(http.StatusCreated, o)
}

func checkoutInput(c echo.Context, req transport.CheckoutRequest) service.CheckoutInput {
	return service.CheckoutInput{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Note:            req.Note,
		IdempotencyKey:  c.Request().Header.Get(headerIdempotencyKey),
	}
}

type FavoriteHTTP struct {
	Svc *service.FavoriteService
}

func (h *FavoriteHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "favorite.list")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "list_favorites_error", err)
	}
	items, err := h.Svc.List(ctx, userID)
	if err != nil {
		return fail(l, "list_favorites_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *FavoriteHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "favorite.add")

	userID, productID, err := userAndProduct(c, "productId")
	if err != nil {
		return badRequest(l, "add_favorite_error", "invalid product id", err)
	}
	if err := h.Svc.Add(ctx, userID, productID); err != nil {
		return fail(l, "add_favorite_error", err)
	}
	return c.JSON(http.StatusOK, transport.FavoriteResponse{ProductID: productID, IsFavorite: true})
}

func (h *FavoriteHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "favorite.remove")

	userID, productID, err := userAndProduct(c, "productId")
	if err != nil {
		return badRequest(l, "remove_favorite_error", "invalid product id", err)
	}
	if err := h.Svc.Remove(ctx, userID, productID); err != nil {
		return fail(l, "remove_favorite_error", err)
	}
	return c.JSON(http.StatusOK, transport.FavoriteResponse{ProductID: productID, IsFavorite: false})
}

func (h *FavoriteHTTP) Toggle(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "favorite.toggle")

	userID, productID, err := userAndProduct(c, "productId")
	if err != nil {
		return badRequest(l, "toggle_favorite_error", "invalid product id", err)
	}
	on, err := h.Svc.Toggle(ctx, userID, productID)
	if err != nil {
		return fail(l, "toggle_favorite_error", err)
	}
	return c.JSON(http.StatusOK, transport.FavoriteResponse{ProductID: productID, IsFavorite: on})
}

func (h *FavoriteHTTP) Check(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "favorite.check")

	userID, productID, err := userAndProduct(c, "productId")
	if err != nil {
		return badRequest(l, "check_favorite_error", "invalid product id", err)
	}
	on, err := h.Svc.Check(ctx, userID, productID)
	if err != nil {
		return fail(l, "check_favorite_error", err)
	}
	return c.JSON(http.StatusOK, transport.FavoriteResponse{ProductID: productID, IsFavorite: on})
}
