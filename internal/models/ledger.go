package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Payment struct {
	ID            uuid.UUID       `gorm:"primaryKey"                    json:"id"`
	OrderID       uuid.UUID       `gorm:"index;not null"                json:"order_id"`
	Order         *Order          `                                     json:"order,omitempty"`
	UserID        uuid.UUID       `gorm:"index;not null"                json:"user_id"`
	User          *User           `                                     json:"user,omitempty"`
	Amount        decimal.Decimal `gorm:"type:decimal(16,2);not null"   json:"amount"`
	Method        PaymentMethod   `gorm:"type:varchar(16);not null"     json:"method"`
	Status        PaymentStatus   `gorm:"type:varchar(16);index;not null" json:"status"`
	PaidAt        *time.Time      `gorm:"index"                         json:"paid_at,omitempty"`
	TransactionID string          `gorm:"not null;default:''"           json:"transaction_id"`
	CreatedBy     uuid.UUID       `gorm:"not null"                      json:"created_by"`
	Note          string          `gorm:"not null;default:''"           json:"note"`
	CreatedAt     time.Time       `gorm:"index"                         json:"created_at"`
	UpdatedAt     time.Time       `                                     json:"updated_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Import is a stock-receiving record. Deleted imports stay queryable.
type Import struct {
	ID           uuid.UUID       `gorm:"primaryKey"                    json:"id"`
	ProductID    uuid.UUID       `gorm:"index;not null"                json:"product_id"`
	Product      *Product        `                                     json:"product,omitempty"`
	Quantity     int             `gorm:"not null;check:quantity >= 0"  json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(16,2);not null"   json:"unit_price"`
	Source       string          `gorm:"not null;default:''"           json:"source"`
	Note         string          `gorm:"not null;default:''"           json:"note"`
	CreatedBy    *uuid.UUID      `                                     json:"created_by,omitempty"`
	Deleted      bool            `gorm:"index;not null;default:false"  json:"deleted"`
	DeleteReason string          `gorm:"not null;default:''"           json:"delete_reason"`
	DeletedAt    *time.Time      `                                     json:"deleted_at,omitempty"`
	CreatedAt    time.Time       `gorm:"index"                         json:"created_at"`
	UpdatedAt    time.Time       `                                     json:"updated_at"`
}

func (i *Import) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
