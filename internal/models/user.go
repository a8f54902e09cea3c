package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	// registers the fieldcrypt serializer used by User
	_ "github.com/Skotchmaster/handmade_shop/internal/crypt"
)

type User struct {
	ID           uuid.UUID `gorm:"primaryKey"                  json:"id"`
	Name         string    `gorm:"not null"                    json:"name"`
	Email        string    `gorm:"uniqueIndex;not null"        json:"email"`
	PasswordHash string    `gorm:"not null"                    json:"-"`
	Phone        string    `gorm:"serializer:fieldcrypt"       json:"phone"`
	Address      string    `gorm:"serializer:fieldcrypt"       json:"address"`
	City         string    `gorm:"not null;default:''"         json:"city"`
	ZipCode      string    `gorm:"not null;default:''"         json:"zip_code"`
	Role         string    `gorm:"type:varchar(16);not null"   json:"role"`
	IsActive     bool      `gorm:"not null"                    json:"is_active"`
	Avatar       string    `gorm:"not null;default:''"         json:"avatar"`

	IsEmailVerified             bool       `gorm:"not null;default:false" json:"is_email_verified"`
	EmailVerificationToken      string     `gorm:"index"                  json:"-"`
	EmailVerificationExpires    *time.Time `                              json:"-"`
	LastVerificationEmailSentAt *time.Time `                              json:"-"`
	PasswordResetToken          string     `gorm:"index"                  json:"-"`
	PasswordResetExpires        *time.Time `                              json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `             json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"primaryKey"           json:"id"`
	UserID    uuid.UUID `gorm:"index;not null"       json:"user_id"`
	TokenHash string    `gorm:"uniqueIndex;not null" json:"-"`
	JTI       string    `gorm:"uniqueIndex;not null" json:"jti"`
	ExpiresAt time.Time `gorm:"not null"             json:"expires_at"`
	Revoked   bool      `gorm:"not null;default:false" json:"revoked"`
	CreatedAt time.Time `                            json:"created_at"`
}

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type Favorite struct {
	UserID    uuid.UUID `gorm:"primaryKey" json:"user_id"`
	ProductID uuid.UUID `gorm:"primaryKey" json:"product_id"`
	Product   *Product  `                  json:"product,omitempty"`
	CreatedAt time.Time `gorm:"index"      json:"created_at"`
}

type CartItem struct {
	ID        uuid.UUID `gorm:"primaryKey"                                  json:"id"`
	UserID    uuid.UUID `gorm:"not null;uniqueIndex:idx_cart_user_product"  json:"user_id"`
	ProductID uuid.UUID `gorm:"not null;uniqueIndex:idx_cart_user_product"  json:"product_id"`
	Product   *Product  `                                                   json:"product,omitempty"`
	Quantity  int       `gorm:"not null;check:quantity > 0"                 json:"quantity"`
	CreatedAt time.Time `                                                   json:"created_at"`
	UpdatedAt time.Time `                                                   json:"updated_at"`
}

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
