package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/mykafka"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
	"github.com/Skotchmaster/handmade_shop/internal/search"
	"github.com/Skotchmaster/handmade_shop/internal/sheets"
	"github.com/Skotchmaster/handmade_shop/internal/util"
)

const (
	DefaultProductLimit = 10
	DefaultRelatedLimit = 12
	maxSlugAttempts     = 50
)

type CatalogService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Index  ProductIndex // nil when search is not configured
}

type ProductQuery struct {
	Search     string
	CategoryID *uuid.UUID
	Featured   *bool
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
	Page       int
	Limit      int
}

type ProductPage struct {
	Items []models.Product
	Meta  util.Meta
}

type ProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	CategoryID  *uuid.UUID
	Images      []string
	IsFeatured  *bool
	// Stock is rejected on update; stock only moves through orders and imports.
	Stock *int
}

func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultProductLimit
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return nil, fmt.Errorf("%w: min_price must not exceed max_price", ErrValidation)
	}
	switch q.Sort {
	case "", repo.SortNewest, repo.SortPriceAsc, repo.SortPriceDesc:
	default:
		return nil, fmt.Errorf("%w: unknown sort %q", ErrValidation, q.Sort)
	}

	offset, limit := util.Calculate(q.Page, q.Limit)
	term := strings.TrimSpace(q.Search)
	items, total, err := s.Repo.ListProducts(ctx, repo.ProductFilter{
		Search:     util.Fold(term),
		RawSearch:  term,
		CategoryID: q.CategoryID,
		Featured:   q.Featured,
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		Sort:       q.Sort,
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return &ProductPage{Items: items, Meta: util.NewMeta(q.Page, limit, total)}, nil
}

// SearchProducts asks the search index for ids and loads the rows from the
// database in the index's ranking order. Without an index it falls back to
// the folded substring listing.
func (s *CatalogService) SearchProducts(ctx context.Context, query string, page, limit int) (*ProductPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: q required", ErrValidation)
	}
	if s.Index == nil {
		return s.ListProducts(ctx, ProductQuery{Search: query, Page: page, Limit: limit})
	}
	if limit <= 0 {
		limit = DefaultProductLimit
	}
	offset, limit := util.Calculate(page, limit)

	total, ids, err := s.Index.Search(ctx, query, offset, limit)
	if err != nil {
		logger(ctx, "catalog.search").Warn("search_index_error", "error", err)
		return s.ListProducts(ctx, ProductQuery{Search: query, Page: page, Limit: limit})
	}
	items := []models.Product{}
	if len(ids) > 0 {
		rows, _, err := s.Repo.ListProducts(ctx, repo.ProductFilter{IDs: ids})
		if err != nil {
			return nil, err
		}
		byID := make(map[uuid.UUID]models.Product, len(rows))
		for _, p := range rows {
			byID[p.ID] = p
		}
		for _, id := range ids {
			if p, ok := byID[id]; ok {
				items = append(items, p)
			}
		}
	}
	return &ProductPage{Items: items, Meta: util.NewMeta(page, limit, total)}, nil
}

type CategoryProducts struct {
	Category models.Category  `json:"category"`
	Products []models.Product `json:"products"`
}

// ProductsByCategory groups the newest products of every active category.
func (s *CatalogService) ProductsByCategory(ctx context.Context, perCategory int) ([]CategoryProducts, error) {
	if perCategory <= 0 {
		perCategory = DefaultProductLimit
	}
	cats, err := s.Repo.ListCategories(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]CategoryProducts, 0, len(cats))
	for _, c := range cats {
		id := c.ID
		items, _, err := s.Repo.ListProducts(ctx, repo.ProductFilter{CategoryID: &id, Limit: perCategory})
		if err != nil {
			return nil, err
		}
		out = append(out, CategoryProducts{Category: c, Products: items})
	}
	return out, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.Repo.GetProductBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return nil, notFound(err, "product")
	}
	return p, nil
}

func (s *CatalogService) RelatedProducts(ctx context.Context, id uuid.UUID, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	p, err := s.Repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	return s.Repo.RelatedProducts(ctx, p, limit)
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if in.Price == nil || in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if in.CategoryID == nil {
		return nil, fmt.Errorf("%w: category_id required", ErrValidation)
	}
	if _, err := s.Repo.GetCategory(ctx, *in.CategoryID); err != nil {
		return nil, notFound(err, "category")
	}

	p := &models.Product{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(*in.Name),
		Price:      in.Price.Round(2),
		CategoryID: *in.CategoryID,
		Stock:      0,
		Images:     pq.StringArray(cleanImages(in.Images)),
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsFeatured != nil {
		p.IsFeatured = *in.IsFeatured
	}
	p.NameNormalized = util.Fold(p.Name)

	slug, err := s.uniqueSlug(ctx, p.Name, p.ID)
	if err != nil {
		return nil, err
	}
	p.Slug = slug

	if err := s.Repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.reindex(ctx, p)
	publish(ctx, s.Events, mykafka.TopicProducts, "product_created", p.ID, map[string]any{"slug": p.Slug})
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*models.Product, error) {
	if in.Stock != nil {
		return nil, fmt.Errorf("%w: stock cannot be edited directly, use imports", ErrValidation)
	}
	current, err := s.Repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}

	fields := map[string]any{}
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		name := strings.TrimSpace(*in.Name)
		if name != current.Name {
			slug, err := s.uniqueSlug(ctx, name, id)
			if err != nil {
				return nil, err
			}
			fields["name"] = name
			fields["name_normalized"] = util.Fold(name)
			fields["slug"] = slug
		}
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
		fields["description"] = strings.TrimSpace(*in.Description)
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
		}
		fields["price"] = in.Price.Round(2)
	}
	if in.CategoryID != nil && *in.CategoryID != current.CategoryID {
		if _, err := s.Repo.GetCategory(ctx, *in.CategoryID); err != nil {
			return nil, notFound(err, "category")
		}
		fields["category_id"] = *in.CategoryID
	}
	if in.Images != nil {
		fields["images"] = pq.StringArray(cleanImages(in.Images))
	}
	if in.IsFeatured != nil {
		fields["is_featured"] = *in.IsFeatured
	}

	if len(fields) > 0 {
		if err := s.Repo.UpdateProductFields(ctx, id, fields); err != nil {
			return nil, notFound(err, "product")
		}
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, p)
	publish(ctx, s.Events, mykafka.TopicProducts, "product_updated", p.ID, nil)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return notFound(err, "product")
	}
	if s.Index != nil {
		if err := s.Index.DeleteProduct(ctx, id); err != nil {
			logger(ctx, "catalog.delete_product").Warn("search_index_error", "error", err)
		}
	}
	publish(ctx, s.Events, mykafka.TopicProducts, "product_deleted", id, nil)
	return nil
}

// ExportStock writes every product with its current stock as xlsx.
func (s *CatalogService) ExportStock(ctx context.Context, w io.Writer) error {
	cats, err := s.Repo.ListCategories(ctx, false)
	if err != nil {
		return err
	}
	names := make(map[uuid.UUID]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	products, _, err := s.Repo.ListProducts(ctx, repo.ProductFilter{})
	if err != nil {
		return err
	}
	rows := make([]sheets.StockRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, sheets.StockRow{
			Name:     p.Name,
			Slug:     p.Slug,
			Category: names[p.CategoryID],
			Price:    p.Price,
			Stock:    p.Stock,
		})
	}
	return sheets.WriteStock(w, rows)
}

// ReindexStock refreshes the search document after a stock change.
func (s *CatalogService) ReindexStock(ctx context.Context, ids ...uuid.UUID) {
	if s == nil || s.Index == nil {
		return
	}
	for _, id := range ids {
		p, err := s.Repo.FindProduct(ctx, id)
		if err != nil {
			continue
		}
		s.reindex(ctx, p)
	}
}

func (s *CatalogService) reindex(ctx context.Context, p *models.Product) {
	if s.Index == nil {
		return
	}
	doc := search.ProductDoc{
		ID:             p.ID.String(),
		Name:           p.Name,
		NameNormalized: p.NameNormalized,
		Slug:           p.Slug,
		Description:    p.Description,
		CategoryID:     p.CategoryID.String(),
		Price:          p.Price.InexactFloat64(),
		Stock:          p.Stock,
		IsFeatured:     p.IsFeatured,
	}
	if err := s.Index.IndexProduct(ctx, doc); err != nil {
		logger(ctx, "catalog.reindex").Warn("search_index_error", "product_id", p.ID, "error", err)
	}
}

// uniqueSlug derives a slug from name and appends -1, -2, ... on collision.
func (s *CatalogService) uniqueSlug(ctx context.Context, name string, id uuid.UUID) (string, error) {
	base := util.Slug(name)
	if base == "" {
		hex := strings.ReplaceAll(id.String(), "-", "")
		base = "p-" + hex[len(hex)-8:]
	}
	slug := base
	for i := 1; i <= maxSlugAttempts; i++ {
		taken, err := s.Repo.SlugExists(ctx, slug, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("%w: could not derive a unique slug for %q", ErrConflict, name)
}

func cleanImages(in []string) []string {
	out := make([]string, 0, len(in))
	for _, img := range in {
		if img = strings.TrimSpace(img); img != "" {
			out = append(out, img)
		}
	}
	return out
}

// Categories

type CategoryInput struct {
	Name        *string
	Description *string
	IsActive    *bool
}

func (s *CatalogService) ListCategories(ctx context.Context, onlyActive bool) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx, onlyActive)
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	name := strings.TrimSpace(*in.Name)
	taken, err := s.Repo.CategoryNameTaken(ctx, name, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: category %q already exists", ErrConflict, name)
	}
	c := &models.Category{Name: name, IsActive: true}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	c, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		return nil, notFound(err, "category")
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
		}
		taken, err := s.Repo.CategoryNameTaken(ctx, name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: category %q already exists", ErrConflict, name)
		}
		c.Name = name
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if err := s.Repo.SaveCategory(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Feedback

type FeedbackInput struct {
	Rating  int
	Comment string
}

// CanReview reports whether the user has a delivered or finished order with the product.
func (s *CatalogService) CanReview(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return s.Repo.HasDeliveredOrderWith(ctx, userID, productID)
}

func (s *CatalogService) AddFeedback(ctx context.Context, userID, productID uuid.UUID, in FeedbackInput) (*models.Feedback, error) {
	if err := validateRating(in.Rating); err != nil {
		return nil, err
	}
	if _, err := s.Repo.FindProduct(ctx, productID); err != nil {
		return nil, notFound(err, "product")
	}
	ok, err := s.CanReview(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: only customers with a delivered order may review this product", ErrForbidden)
	}
	if _, err := s.Repo.GetFeedback(ctx, productID, userID); err == nil {
		return nil, fmt.Errorf("%w: feedback already submitted, update it instead", ErrConflict)
	} else if !repo.IsNotFound(err) {
		return nil, err
	}

	f := &models.Feedback{
		ProductID: productID,
		UserID:    userID,
		Rating:    in.Rating,
		Comment:   strings.TrimSpace(in.Comment),
	}
	if err := s.Repo.CreateFeedback(ctx, f); err != nil {
		return nil, err
	}
	if err := s.recomputeRate(ctx, productID); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *CatalogService) UpdateFeedback(ctx context.Context, userID, productID uuid.UUID, in FeedbackInput) (*models.Feedback, error) {
	if err := validateRating(in.Rating); err != nil {
		return nil, err
	}
	f, err := s.Repo.GetFeedback(ctx, productID, userID)
	if err != nil {
		return nil, notFound(err, "feedback")
	}
	f.Rating = in.Rating
	f.Comment = strings.TrimSpace(in.Comment)
	if err := s.Repo.SaveFeedback(ctx, f); err != nil {
		return nil, err
	}
	if err := s.recomputeRate(ctx, productID); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *CatalogService) GetMyFeedback(ctx context.Context, userID, productID uuid.UUID) (*models.Feedback, error) {
	f, err := s.Repo.GetFeedback(ctx, productID, userID)
	if err != nil {
		return nil, notFound(err, "feedback")
	}
	return f, nil
}

// ReviewedFlags maps each product id to whether the user already left feedback.
func (s *CatalogService) ReviewedFlags(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	reviewed, err := s.Repo.ReviewedProductIDs(ctx, userID, productIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		out[id] = false
	}
	for _, id := range reviewed {
		out[id] = true
	}
	return out, nil
}

func (s *CatalogService) recomputeRate(ctx context.Context, productID uuid.UUID) error {
	ratings, err := s.Repo.FeedbackRatings(ctx, productID)
	if err != nil {
		return err
	}
	return s.Repo.SetProductRate(ctx, productID, AverageRating(ratings))
}

// AverageRating is the mean rounded to one decimal, 0 for no ratings.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10
}

func validateRating(r int) error {
	if r < 1 || r > 5 {
		return fmt.Errorf("%w: rating must be an integer between 1 and 5", ErrValidation)
	}
	return nil
}
