package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ShippingAddress struct {
	FullName    string `gorm:"not null" json:"full_name"`
	Phone       string `gorm:"not null" json:"phone"`
	AddressLine string `gorm:"not null" json:"address_line"`
	City        string `gorm:"not null" json:"city"`
	PostalCode  string `gorm:"not null" json:"postal_code"`
}

type Order struct {
	ID             uuid.UUID       `gorm:"primaryKey"                                     json:"id"`
	UserID         uuid.UUID       `gorm:"index;not null;uniqueIndex:idx_orders_user_idem" json:"user_id"`
	User           *User           `                                                      json:"user,omitempty"`
	Items          []OrderItem     `gorm:"constraint:OnDelete:CASCADE"                    json:"items"`
	ShippingAddr   ShippingAddress `gorm:"embedded;embeddedPrefix:ship_"                  json:"shipping_address"`
	PaymentMethod  PaymentMethod   `gorm:"type:varchar(16);not null"                      json:"payment_method"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(16,2);not null"                    json:"total_amount"`
	Note           string          `gorm:"not null;default:''"                            json:"note"`
	Status         OrderStatus     `gorm:"type:varchar(20);index;not null"                json:"status"`
	IsPaid         bool            `gorm:"not null;default:false"                         json:"is_paid"`
	PaidAt         *time.Time      `                                                      json:"paid_at,omitempty"`
	IdempotencyKey *string         `gorm:"type:varchar(128);uniqueIndex:idx_orders_user_idem" json:"-"`
	StatusHistory  []StatusChange  `gorm:"constraint:OnDelete:CASCADE"                    json:"status_history"`
	CreatedAt      time.Time       `gorm:"index"                                          json:"created_at"`
	UpdatedAt      time.Time       `                                                      json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (o *Order) AfterFind(tx *gorm.DB) error {
	o.Status = o.Status.Normalize()
	return nil
}

// OrderItem is a line item; Name and UnitPrice are captured when the order is placed.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"primaryKey"                       json:"id"`
	OrderID   uuid.UUID       `gorm:"index;not null"                   json:"order_id"`
	ProductID uuid.UUID       `gorm:"index;not null"                   json:"product_id"`
	Product   *Product        `                                        json:"product,omitempty"`
	Name      string          `gorm:"not null"                         json:"name"`
	Quantity  int             `gorm:"not null;check:quantity > 0"      json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(16,2);not null"      json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:decimal(16,2);not null"      json:"line_total"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// StatusChange rows are only ever inserted.
type StatusChange struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"-"`
	OrderID   uuid.UUID   `gorm:"index;not null"           json:"-"`
	Status    OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	ChangedAt time.Time   `gorm:"not null"                 json:"changed_at"`
	Note      string      `gorm:"not null;default:''"      json:"note"`
}

func (s *StatusChange) AfterFind(tx *gorm.DB) error {
	s.Status = s.Status.Normalize()
	return nil
}
