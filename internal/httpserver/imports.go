package httpserver

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/handmade_shop/internal/logging"
	"github.com/Skotchmaster/handmade_shop/internal/service"
	"github.com/Skotchmaster/handmade_shop/internal/sheets"
	"github.com/Skotchmaster/handmade_shop/internal/transport"
)

const maxUploadBytes = 5 << 20

type ImportHTTP struct {
	Svc *service.ImportService
}

func (h *ImportHTTP) CreateImport(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "import.create_import")

	var req transport.ImportRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_import_error", "invalid body", err)
	}
	imp, err := h.Svc.CreateImport(ctx, actor(c), service.ImportInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Source:    req.Source,
		Note:      req.Note,
	})
	if err != nil {
		return fail(l, "create_import_error", err)
	}

	l.Info("create_import_success", "import_id", imp.ID)
	return c.JSON(http.StatusCreated, imp)
}

func (h *ImportHTTP) UpdateImport(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "import.update_import")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "update_import_error", "id is not a uuid", err)
	}
	var req transport.ImportPatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_import_error", "invalid body", err)
	}
	imp, err := h.Svc.UpdateImport(ctx, id, service.ImportPatch{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
		Source:    req.Source,
		Note:      req.Note,
	})
	if err != nil {
		return fail(l, "update_import_error", err)
	}

	l.Info("update_import_success", "import_id", imp.ID)
	return c.JSON(http.StatusOK, imp)
}

func (h *ImportHTTP) DeleteImport(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "import.delete_import")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "delete_import_error", "id is not a uuid", err)
	}
	var req transport.DeleteImportRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "delete_import_error", "invalid body", err)
	}
	if req.Reason == "" {
		req.Reason = c.QueryParam("reason")
	}
	imp, err := h.Svc.SoftDeleteImport(ctx, id, req.Reason)
	if err != nil {
		return fail(l, "delete_import_error", err)
	}

	l.Info("delete_import_success", "import_id", imp.ID)
	return c.JSON(http.StatusOK, imp)
}

func (h *ImportHTTP) GetImport(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "import.get_import")

	id, err := pathID(c, "id")
	if err != nil {
		return badRequest(l, "get_import_error", "id is not a uuid", err)
	}
	imp, err := h.Svc.GetImport(ctx, id)
	if err != nil {
		return fail(l, "get_import_error", err)
	}
	return c.JSON(http.StatusOK, imp)
}

func (h *ImportHTTP) ListImports(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "import.list_imports")

	q := service.ImportQuery{}
	q.Page, q.Size = pageParams(c)
	if v := c.QueryParam("product_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(l, "list_imports_error", "product_id is not a uuid", err)
		}
		q.ProductID = &id
	}
	inc, err := boolQuery(c, "include_deleted")
	if err != nil {
		return badRequest(l, "list_imports_error", "include_deleted must be a boolean", err)
	}
	q.IncludeDeleted = inc != nil && *inc

	items, meta, err := h.Svc.ListImports(ctx, q)
	if err != nil {
		return fail(l, "list_imports_error", err)
	}
	return c.JSON(http.StatusOK, paged(items, meta))
}

// BulkImport reads the "file" field of a multipart upload as an xlsx sheet.
func (h *ImportHTTP) BulkImport(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "import.bulk_import")

	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest(l, "bulk_import_error", "file is required", err)
	}
	if fh.Size > maxUploadBytes {
		return badRequest(l, "bulk_import_error", "file is larger than 5MB", nil)
	}
	src, err := fh.Open()
	if err != nil {
		return badRequest(l, "bulk_import_error", "cannot open file", err)
	}
	defer src.Close()

	rows, err := sheets.ParseImportRows(src, fh.Size)
	if err != nil {
		if errors.Is(err, sheets.ErrEmptySheet) {
			return badRequest(l, "bulk_import_error", "the sheet has no import rows", err)
		}
		return badRequest(l, "bulk_import_error", "file is not a valid xlsx workbook", err)
	}
	res, err := h.Svc.BulkImport(ctx, actor(c), rows)
	if err != nil {
		return fail(l, "bulk_import_error", err)
	}

	l.Info("bulk_import_success", "created", len(res.Created), "failed", len(res.Failed))
	return c.JSON(http.StatusOK, res)
}

func (h *ImportHTTP) Template(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "import.template")

	var buf bytes.Buffer
	if err := sheets.WriteImportTemplate(&buf); err != nil {
		return fail(l, "import_template_error", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="import-template.xlsx"`)
	return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

func actor(c echo.Context) *uuid.UUID {
	id, err := currentUser(c)
	if err != nil {
		return nil
	}
	return &id
}
