package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/mykafka"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
	"github.com/Skotchmaster/handmade_shop/internal/sheets"
	"github.com/Skotchmaster/handmade_shop/internal/util"
)

// ImportService owns stock receiving. Every stock write here is a single
// clamped statement in the same transaction as the import row.
type ImportService struct {
	Repo    *repo.GormRepo
	Events  EventPublisher
	Catalog *CatalogService
}

type ImportInput struct {
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	Source    string
	Note      string
}

type ImportPatch struct {
	Quantity  *int
	UnitPrice *decimal.Decimal
	Source    *string
	Note      *string
}

func (s *ImportService) CreateImport(ctx context.Context, createdBy *uuid.UUID, in ImportInput) (*models.Import, error) {
	l := logger(ctx, "import.create_import").With("product_id", in.ProductID)

	if in.ProductID == uuid.Nil {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if in.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	if in.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: unit_price must be >= 0", ErrValidation)
	}

	imp := &models.Import{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice.Round(2),
		Source:    strings.TrimSpace(in.Source),
		Note:      strings.TrimSpace(in.Note),
		CreatedBy: createdBy,
	}
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		if _, err := tx.FindProduct(ctx, in.ProductID); err != nil {
			return notFound(err, "product")
		}
		if err := tx.CreateImport(ctx, imp); err != nil {
			return err
		}
		return tx.AdjustStockClamped(ctx, in.ProductID, in.Quantity)
	})
	if err != nil {
		l.Warn("create_import_error", "error", err)
		return nil, err
	}
	l.Info("create_import_success", "import_id", imp.ID, "quantity", imp.Quantity)

	s.Catalog.ReindexStock(ctx, in.ProductID)
	publish(ctx, s.Events, mykafka.TopicInventory, "import_created", imp.ID, map[string]any{
		"product_id": imp.ProductID,
		"quantity":   imp.Quantity,
	})
	return s.Repo.GetImport(ctx, imp.ID)
}

// UpdateImport applies newQuantity-oldQuantity to stock; other fields never touch stock.
func (s *ImportService) UpdateImport(ctx context.Context, id uuid.UUID, in ImportPatch) (*models.Import, error) {
	l := logger(ctx, "import.update_import").With("import_id", id)

	if in.Quantity != nil && *in.Quantity < 0 {
		return nil, fmt.Errorf("%w: quantity must be >= 0", ErrValidation)
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return nil, fmt.Errorf("%w: unit_price must be >= 0", ErrValidation)
	}

	var (
		productID uuid.UUID
		delta     int
	)
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		imp, err := tx.LockImport(ctx, id)
		if err != nil {
			return notFound(err, "import")
		}
		if imp.Deleted {
			return fmt.Errorf("%w: import was deleted", ErrAlreadyDeleted)
		}
		productID = imp.ProductID

		if in.Quantity != nil {
			delta = *in.Quantity - imp.Quantity
			imp.Quantity = *in.Quantity
		}
		if in.UnitPrice != nil {
			imp.UnitPrice = in.UnitPrice.Round(2)
		}
		if in.Source != nil {
			imp.Source = strings.TrimSpace(*in.Source)
		}
		if in.Note != nil {
			imp.Note = strings.TrimSpace(*in.Note)
		}
		if err := tx.SaveImport(ctx, imp); err != nil {
			return err
		}
		if delta == 0 {
			return nil
		}
		return tx.AdjustStockClamped(ctx, imp.ProductID, delta)
	})
	if err != nil {
		l.Warn("update_import_error", "error", err)
		return nil, err
	}

	if delta != 0 {
		s.Catalog.ReindexStock(ctx, productID)
	}
	publish(ctx, s.Events, mykafka.TopicInventory, "import_updated", id, map[string]any{
		"product_id": productID,
		"delta":      delta,
	})
	return s.Repo.GetImport(ctx, id)
}

// SoftDeleteImport rolls the import's quantity back out of stock, floored at 0.
func (s *ImportService) SoftDeleteImport(ctx context.Context, id uuid.UUID, reason string) (*models.Import, error) {
	l := logger(ctx, "import.soft_delete_import").With("import_id", id)

	var productID uuid.UUID
	err := s.Repo.InTx(ctx, func(tx *repo.GormRepo) error {
		imp, err := tx.LockImport(ctx, id)
		if err != nil {
			return notFound(err, "import")
		}
		productID = imp.ProductID

		// the conditional update is the real guard; a concurrent delete leaves 0 rows
		ok, err := tx.MarkImportDeleted(ctx, id, strings.TrimSpace(reason), nowUTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: import was deleted", ErrAlreadyDeleted)
		}
		return tx.AdjustStockClamped(ctx, imp.ProductID, -imp.Quantity)
	})
	if err != nil {
		l.Warn("soft_delete_import_error", "error", err)
		return nil, err
	}

	s.Catalog.ReindexStock(ctx, productID)
	publish(ctx, s.Events, mykafka.TopicInventory, "import_deleted", id, map[string]any{
		"product_id": productID,
		"reason":     strings.TrimSpace(reason),
	})
	return s.Repo.GetImport(ctx, id)
}

func (s *ImportService) GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	imp, err := s.Repo.GetImport(ctx, id)
	if err != nil {
		return nil, notFound(err, "import")
	}
	return imp, nil
}

type ImportQuery struct {
	ProductID      *uuid.UUID
	IncludeDeleted bool
	Page           int
	Size           int
}

func (s *ImportService) ListImports(ctx context.Context, q ImportQuery) ([]models.Import, util.Meta, error) {
	offset, limit := util.Calculate(q.Page, q.Size)
	items, total, err := s.Repo.ListImports(ctx, repo.ImportFilter{
		ProductID:      q.ProductID,
		IncludeDeleted: q.IncludeDeleted,
		Offset:         offset,
		Limit:          limit,
	})
	if err != nil {
		return nil, util.Meta{}, err
	}
	return items, util.NewMeta(q.Page, limit, total), nil
}

type BulkRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type BulkResult struct {
	Created []models.Import `json:"created"`
	Failed  []BulkRowError  `json:"failed"`
}

// BulkImport creates one import per sheet row. A failing row is reported and
// the rest of the batch continues.
func (s *ImportService) BulkImport(ctx context.Context, createdBy *uuid.UUID, rows []sheets.ImportRow) (*BulkResult, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: the sheet has no import rows", ErrValidation)
	}
	res := &BulkResult{Created: []models.Import{}, Failed: []BulkRowError{}}
	for _, row := range rows {
		fail := func(err error) {
			res.Failed = append(res.Failed, BulkRowError{Row: row.Row, Error: err.Error()})
		}
		if row.Err != nil {
			fail(row.Err)
			continue
		}
		productID, err := s.resolveProduct(ctx, row.Product)
		if err != nil {
			fail(err)
			continue
		}
		imp, err := s.CreateImport(ctx, createdBy, ImportInput{
			ProductID: productID,
			Quantity:  row.Quantity,
			UnitPrice: row.UnitPrice,
			Source:    row.Source,
			Note:      row.Note,
		})
		if err != nil {
			fail(err)
			continue
		}
		res.Created = append(res.Created, *imp)
	}
	logger(ctx, "import.bulk_import").Info("bulk_import_done", "created", len(res.Created), "failed", len(res.Failed))
	return res, nil
}

// resolveProduct accepts a product id or slug.
func (s *ImportService) resolveProduct(ctx context.Context, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return uuid.Nil, fmt.Errorf("%w: product required", ErrValidation)
	}
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	p, err := s.Repo.GetProductBySlug(ctx, strings.ToLower(ref))
	if err != nil {
		if repo.IsNotFound(err) {
			return uuid.Nil, fmt.Errorf("%w: product %q", ErrNotFound, ref)
		}
		return uuid.Nil, err
	}
	return p.ID, nil
}

