package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusRefunded   OrderStatus = "REFUNDED"
)

// orderTransitions lists the forward edges of the order lifecycle. REFUNDED is
// reachable from every other state and handled separately.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// Cancellable reports whether a customer may still cancel an order in this status.
func (s OrderStatus) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.Valid() || !next.Valid() || s == next {
		return false
	}
	if next == StatusRefunded {
		return s != StatusRefunded
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID            uuid.UUID   `json:"id"`
	OrderNumber   string      `json:"order_number"`
	UserID        uuid.UUID   `json:"user_id"`
	AddressID     uuid.UUID   `json:"address_id"`
	Status        OrderStatus `json:"status"`
	SubtotalCents int64       `json:"subtotal_cents"`
	DiscountCents int64       `json:"discount_cents"`
	TaxCents      int64       `json:"tax_cents"`
	ShippingCents int64       `json:"shipping_cents"`
	TotalCents    int64       `json:"total_cents"`
	Currency      string      `json:"currency"`
	Notes         string      `json:"notes,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	Items         []OrderItem `json:"items"`

	Address  *Address     `json:"address,omitempty"`
	Payment  *Payment     `json:"payment,omitempty"`
	Shipment *Shipment    `json:"shipment,omitempty"`
	User     *UserSummary `json:"user,omitempty"`
}

// OrderItem keeps a price snapshot taken at purchase time so later catalog
// price changes never alter historical orders.
type OrderItem struct {
	ID                 uuid.UUID  `json:"id"`
	OrderID            uuid.UUID  `json:"order_id"`
	ProductID          uuid.UUID  `json:"product_id"`
	ProductName        string     `json:"product_name"`
	Quantity           int        `json:"quantity"`
	OriginalPriceCents int64      `json:"original_price_cents"`
	UnitPriceCents     int64      `json:"unit_price_cents"`
	TotalCents         int64      `json:"total_cents"`
	CouponID           *uuid.UUID `json:"coupon_id,omitempty"`
}

type Address struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
}

type UserSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}
