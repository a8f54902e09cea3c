package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/handmade_shop/internal/models"
	"github.com/Skotchmaster/handmade_shop/internal/repo"
)

type CartService struct {
	Repo   *repo.GormRepo
	Orders *OrderService
}

type Cart struct {
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
}

// GetCart prices the cart at current product prices. Lines whose product
// was deleted are dropped from the response.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*Cart, error) {
	items, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart := &Cart{Items: make([]models.CartItem, 0, len(items)), TotalPrice: decimal.Zero}
	for _, it := range items {
		if it.Product == nil {
			continue
		}
		cart.Items = append(cart.Items, it)
		cart.TotalItems += it.Quantity
		cart.TotalPrice = cart.TotalPrice.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return cart, nil
}

// AddItem merges qty into an existing line; the merged quantity must fit in stock.
func (s *CartService) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	existing := 0
	if item, err := s.Repo.GetCartItem(ctx, userID, productID); err == nil {
		existing = item.Quantity
	} else if !repo.IsNotFound(err) {
		return nil, err
	}
	if err := s.setQuantity(ctx, userID, productID, existing+qty); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) UpdateItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be >= 1", ErrValidation)
	}
	if _, err := s.Repo.GetCartItem(ctx, userID, productID); err != nil {
		return nil, notFound(err, "cart item")
	}
	if err := s.setQuantity(ctx, userID, productID, qty); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) setQuantity(ctx context.Context, userID, productID uuid.UUID, qty int) error {
	p, err := s.Repo.FindProduct(ctx, productID)
	if err != nil {
		return notFound(err, "product")
	}
	if qty > p.Stock {
		return &OutOfStockError{ProductID: p.ID, Name: p.Name, Available: p.Stock, Requested: qty}
	}
	return s.Repo.SetCartQuantity(ctx, &models.CartItem{UserID: userID, ProductID: productID, Quantity: qty})
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*Cart, error) {
	ok, err := s.Repo.DeleteCartItem(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: cart item", ErrNotFound)
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.Repo.ClearCart(ctx, userID)
}

type CheckoutInput struct {
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	Note            string
	IdempotencyKey  string
}

// Checkout orders the whole cart and removes the purchased lines.
func (s *CartService) Checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*models.Order, error) {
	items, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	lines := make([]LineItem, 0, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		lines = append(lines, LineItem{ProductID: it.ProductID, Quantity: it.Quantity})
		ids = append(ids, it.ProductID)
	}
	return s.Orders.createOrder(ctx, userID, in.order(lines), ids)
}

// CheckoutItem orders a single cart line.
func (s *CartService) CheckoutItem(ctx context.Context, userID, productID uuid.UUID, in CheckoutInput) (*models.Order, error) {
	item, err := s.Repo.GetCartItem(ctx, userID, productID)
	if err != nil {
		return nil, notFound(err, "cart item")
	}
	lines := []LineItem{{ProductID: item.ProductID, Quantity: item.Quantity}}
	return s.Orders.createOrder(ctx, userID, in.order(lines), []uuid.UUID{productID})
}

func (in CheckoutInput) order(lines []LineItem) CreateOrderInput {
	return CreateOrderInput{
		Items:           lines,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		Note:            in.Note,
		IdempotencyKey:  in.IdempotencyKey,
	}
}

// Favorites

type FavoriteService struct {
	Repo *repo.GormRepo
}

func (s *FavoriteService) List(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	favs, err := s.Repo.ListFavorites(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Product, 0, len(favs))
	for _, f := range favs {
		if f.Product != nil {
			out = append(out, *f.Product)
		}
	}
	return out, nil
}

func (s *FavoriteService) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if _, err := s.Repo.FindProduct(ctx, productID); err != nil {
		return notFound(err, "product")
	}
	return s.Repo.AddFavorite(ctx, userID, productID)
}

func (s *FavoriteService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	ok, err := s.Repo.RemoveFavorite(ctx, userID, productID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: favorite", ErrNotFound)
	}
	return nil
}

// Toggle flips the favorite and reports the new state.
func (s *FavoriteService) Toggle(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	fav, err := s.Repo.IsFavorite(ctx, userID, productID)
	if err != nil {
		return false, err
	}
	if fav {
		_, err := s.Repo.RemoveFavorite(ctx, userID, productID)
		return false, err
	}
	if err := s.Add(ctx, userID, productID); err != nil {
		return false, err
	}
	return true, nil
}

func (s *FavoriteService) Check(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	return s.Repo.IsFavorite(ctx, userID, productID)
}
