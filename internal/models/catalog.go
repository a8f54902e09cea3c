package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Category struct {
	ID          uuid.UUID `gorm:"primaryKey"              json:"id"`
	Name        string    `gorm:"uniqueIndex;not null"    json:"name"`
	Description string    `gorm:"not null;default:''"     json:"description"`
	IsActive    bool      `gorm:"not null"                json:"is_active"`
	CreatedAt   time.Time `gorm:"index"                   json:"created_at"`
	UpdatedAt   time.Time `                               json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type Product struct {
	ID             uuid.UUID       `gorm:"primaryKey"                     json:"id"`
	Name           string          `gorm:"not null"                       json:"name"`
	Slug           string          `gorm:"uniqueIndex;not null"           json:"slug"`
	NameNormalized string          `gorm:"index;not null"                 json:"-"`
	Description    string          `gorm:"not null"                       json:"description"`
	Price          decimal.Decimal `gorm:"type:decimal(16,2);not null"    json:"price"`
	CategoryID     uuid.UUID       `gorm:"index;not null"                 json:"category_id"`
	Category       *Category       `                                      json:"category,omitempty"`
	Stock          int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Images         pq.StringArray  `gorm:"type:text"                      json:"images"`
	IsFeatured     bool            `gorm:"index;not null"                 json:"is_featured"`
	Rate           float64         `gorm:"not null;default:0"             json:"rate"`
	Feedbacks      []Feedback      `gorm:"constraint:OnDelete:CASCADE"    json:"feedbacks,omitempty"`
	CreatedAt      time.Time       `gorm:"index"                          json:"created_at"`
	UpdatedAt      time.Time       `                                      json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type Feedback struct {
	ID        uuid.UUID `gorm:"primaryKey"                                json:"id"`
	ProductID uuid.UUID `gorm:"not null;uniqueIndex:idx_feedback_product_user" json:"product_id"`
	UserID    uuid.UUID `gorm:"not null;uniqueIndex:idx_feedback_product_user" json:"user_id"`
	User      *User     `                                                 json:"user,omitempty"`
	Comment   string    `gorm:"not null;default:''"                       json:"comment"`
	Rating    int       `gorm:"not null;check:rating BETWEEN 1 AND 5"     json:"rating"`
	CreatedAt time.Time `                                                 json:"created_at"`
	UpdatedAt time.Time `                                                 json:"updated_at"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}
