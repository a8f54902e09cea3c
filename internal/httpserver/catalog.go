package httpserver

import (
	"bytes"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/handmade_shop/internal/logging"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/transport"
	"github.com/Skotchmaster/handmade_shop/internal/util"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type CatalogHTTP struct {
	Svc *service.CatalogService
}

func (h *CatalogHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.list_products")

	q := service.ProductQuery{
		Search: c.QueryParam("search"),
		Sort:   c.QueryParam("sort"),
	}
	if q.Search == "" {
		q.Search = c.QueryParam("q")
	}
	q.Page, q.Limit = pageParams(c)
	if v := c.QueryParam("category"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(l, "list_products_error", "category is not a uuid", err)
		}
		q.CategoryID = &id
	}
	featured, err := boolQuery(c, "featured")
	if err != nil {
		return badRequest(l, "list_products_error", "featured must be a boolean", err)
	}
	q.Featured = featured
	for name, dst := range map[string]**decimal.Decimal{"min_price": &q.MinPrice, "max_price": &q.MaxPrice} {
		if v := c.QueryParam(name); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return badRequest(l, "list_products_error", name+" must be a number", err)
			}
			*dst = &d
		}
	}

	res, err := h.Svc.ListProducts(ctx, q)
	if err != nil {
		return fail(l, "list_products_error", err)
	}
	return c.JSON(http.StatusOK, paged(res.Items, res.Meta))
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.search_products")

	page, size := pageParams(c)
	res, err := h.Svc.SearchProducts(ctx, c.QueryParam("q"), page, size)
	if err != nil {
		return fail(l, "search_products_error", err)
	}
	return c.JSON(http.StatusOK, paged(res.Items, res.Meta))
}

func (h *CatalogHTTP) ProductsByCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.products_by_category")

	groups, err := h.Svc.ProductsByCategory(ctx, util.ParseIntDefault(c.QueryParam("limit"), 0))
	if err != nil {
		return fail(l, "products_by_category_error", err)
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "get_product_error", "id is not a uuid", err)
	}
	p, err := h.Svc.GetProduct(ctx, id)
	if err != nil {
		return fail(l, "get_product_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) GetProductBySlug(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.get_product_by_slug")

	p, err := h.Svc.GetProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		return fail(l, "get_product_by_slug_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) RelatedProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.related_products")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "related_products_error", "id is not a uuid", err)
	}
	items, err := h.Svc.RelatedProducts(ctx, id, util.ParseIntDefault(c.QueryParam("limit"), 0))
	if err != nil {
		return fail(l, "related_products_error", err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create_product")

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_product_error", "invalid body", err)
	}
	p, err := h.Svc.CreateProduct(ctx, productInput(req))
	if err != nil {
		return fail(l, "create_product_error", err)
	}

	l.Info("create_product_success", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.update_product")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "update_product_error", "id is not a uuid", err)
	}
	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_product_error", "invalid body", err)
	}
	p, err := h.Svc.UpdateProduct(ctx, id, productInput(req))
	if err != nil {
		return fail(l, "update_product_error", err)
	}

	l.Info("update_product_success", "product_id", p.ID)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.delete_product")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "delete_product_error", "id is not a uuid", err)
	}
	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return fail(l, "delete_product_error", err)
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) ExportStock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.export_stock")

	var buf bytes.Buffer
	if err := h.Svc.ExportStock(ctx, &buf); err != nil {
		return fail(l, "export_stock_error", err)
	}
	name := "stock-" + time.Now().UTC().Format(util.DayLayout) + ".xlsx"
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

func productInput(req transport.ProductRequest) service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Images:      req.Images,
		IsFeatured:  req.IsFeatured,
		Stock:       req.Stock,
	}
}

// Categories

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	return h.listCategories(c, true)
}

func (h *CatalogHTTP) ListAllCategories(c echo.Context) error {
	return h.listCategories(c, false)
}

func (h *CatalogHTTP) listCategories(c echo.Context, onlyActive bool) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.list_categories")

	cats, err := h.Svc.ListCategories(ctx, onlyActive)
	if err != nil {
		return fail(l, "list_categories_error", err)
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create_category")

	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_category_error", "invalid body", err)
	}
	cat, err := h.Svc.CreateCategory(ctx, service.CategoryInput{Name: req.Name, Description: req.Description, IsActive: req.IsActive})
	if err != nil {
		return fail(l, "create_category_error", err)
	}

	l.Info("create_category_success", "category_id", cat.ID)
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHTTP) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.update_category")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "update_category_error", "id is not a uuid", err)
	}
	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_category_error", "invalid body", err)
	}
	cat, err := h.Svc.UpdateCategory(ctx, id, service.CategoryInput{Name: req.Name, Description: req.Description, IsActive: req.IsActive})
	if err != nil {
		return fail(l, "update_category_error", err)
	}

	l.Info("update_category_success", "category_id", cat.ID)
	return c.JSON(http.StatusOK, cat)
}

// Feedback

func (h *CatalogHTTP) CanReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "feedback.can_review")

	userID, productID, err := userAndProduct(c, "id")
	if err != nil {
		return badRequest(l, "can_review_error", "invalid product id", err)
	}
	ok, err := h.Svc.CanReview(ctx, userID, productID)
	if err != nil {
		return fail(l, "can_review_error", err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"can_review": ok})
}

func (h *CatalogHTTP) AddFeedback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "feedback.add_feedback")

	userID, productID, err := userAndProduct(c, "id")
	if err != nil {
		return badRequest(l, "add_feedback_error", "invalid product id", err)
	}
	var req transport.FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "add_feedback_error", "invalid body", err)
	}
	fb, err := h.Svc.AddFeedback(ctx, userID, productID, service.FeedbackInput{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		return fail(l, "add_feedback_error", err)
	}

	l.Info("add_feedback_success", "product_id", productID)
	return c.JSON(http.StatusCreated, fb)
}

func (h *CatalogHTTP) UpdateFeedback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "feedback.update_feedback")

	userID, productID, err := userAndProduct(c, "id")
	if err != nil {
		return badRequest(l, "update_feedback_error", "invalid product id", err)
	}
	var req transport.FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_feedback_error", "invalid body", err)
	}
	fb, err := h.Svc.UpdateFeedback(ctx, userID, productID, service.FeedbackInput{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		return fail(l, "update_feedback_error", err)
	}

	l.Info("update_feedback_success", "product_id", productID)
	return c.JSON(http.StatusOK, fb)
}

func (h *CatalogHTTP) MyFeedback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "feedback.my_feedback")

	userID, productID, err := userAndProduct(c, "id")
	if err != nil {
		return badRequest(l, "my_feedback_error", "invalid product id", err)
	}
	fb, err := h.Svc.GetMyFeedback(ctx, userID, productID)
	if err != nil {
		return fail(l, "my_feedback_error", err)
	}
	return c.JSON(http.StatusOK, fb)
}

func (h *CatalogHTTP) ReviewedFlags(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "feedback.reviewed_flags")

	userID, err := currentUser(c)
	if err != nil {
		return unauthorized(l, "reviewed_flags_error", err)
	}
	var req transport.ReviewedRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "reviewed_flags_error", "invalid body", err)
	}
	flags, err := h.Svc.ReviewedFlags(ctx, userID, req.ProductIDs)
	if err != nil {
		return fail(l, "reviewed_flags_error", err)
	}
	return c.JSON(http.StatusOK, flags)
}

func userAndProduct(c echo.Context, param string) (uuid.UUID, uuid.UUID, error) {
	userID, err := currentUser(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	productID, err := pathID(c, param)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, productID, nil
}
