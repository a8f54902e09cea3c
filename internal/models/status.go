package models

import "strings"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusFinished   OrderStatus = "finished"
	OrderStatusCancelled  OrderStatus = "cancelled"

	// legacy spellings still present in older rows
	orderStatusConfirmed OrderStatus = "confirmed"
	orderStatusShipping  OrderStatus = "shipping"
)

var CanonicalStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusFinished,
	OrderStatusCancelled,
}

var LegacyStatusAliases = map[OrderStatus]OrderStatus{
	orderStatusConfirmed: OrderStatusProcessing,
	orderStatusShipping:  OrderStatusShipped,
}

var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusFinished},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s))).Normalize()
	return st, st.Valid()
}

func (s OrderStatus) Normalize() OrderStatus {
	if canon, ok := LegacyStatusAliases[s]; ok {
		return canon
	}
	return s
}

func (s OrderStatus) Valid() bool {
	for _, c := range CanonicalStatuses {
		if s == c {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	s = s.Normalize()
	return s == OrderStatusFinished || s == OrderStatusCancelled
}

func (s OrderStatus) Cancellable() bool {
	s = s.Normalize()
	return s == OrderStatusPending || s == OrderStatusProcessing
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s.Normalize()] {
		if allowed == next.Normalize() {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodMoMo   PaymentMethod = "MoMo"
	PaymentMethodPayPal PaymentMethod = "PayPal"
)

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cod":
		return PaymentMethodCOD, true
	case "momo":
		return PaymentMethodMoMo, true
	case "paypal":
		return PaymentMethodPayPal, true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)
