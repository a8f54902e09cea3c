package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/handmade_shop/internal/models"
)

// Auth

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	ZipCode  string `json:"zip_code"`
}

type RegisterResponse struct {
	User      *models.User `json:"user"`
	EmailSent bool         `json:"email_sent"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse carries the access token for clients that cannot use
// cookies. The refresh token only travels as an HttpOnly cookie.
type SessionResponse struct {
	User            *models.User `json:"user"`
	AccessToken     string       `json:"access_token"`
	AccessExpiresAt time.Time    `json:"access_expires_at"`
}

type EmailRequest struct {
	Email string `json:"email"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type ProfileRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	City    *string `json:"city"`
	ZipCode *string `json:"zip_code"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Catalog

type ProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *uuid.UUID       `json:"category_id"`
	Images      []string         `json:"images"`
	IsFeatured  *bool            `json:"is_featured"`
	Stock       *int             `json:"stock"`
}

type CategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type ReviewedRequest struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
}

// Cart and orders

type CartItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	Note            string                 `json:"note"`
}

type CheckoutRequest struct {
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	Note            string                 `json:"note"`
}

type StatusRequest struct {
	Status string `json:"status"`
	Force  bool   `json:"force"`
	Note   string `json:"note"`
}

type PaymentRequest struct {
	Note string `json:"note"`
}

type FavoriteResponse struct {
	ProductID  uuid.UUID `json:"product_id"`
	IsFavorite bool      `json:"is_favorite"`
}

// Imports

type ImportRequest struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Source    string          `json:"source"`
	Note      string          `json:"note"`
}

type ImportPatchRequest struct {
	Quantity  *int             `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Source    *string          `json:"source"`
	Note      *string          `json:"note"`
}

type DeleteImportRequest struct {
	Reason string `json:"reason"`
}

// Users and settings

type RoleRequest struct {
	Role string `json:"role"`
}

type ActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

type SettingsRequest struct {
	Promotions []models.Promotion `json:"promotions"`
	Policies   []models.Policy    `json:"policies"`
}
