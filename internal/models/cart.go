package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is a read-only snapshot of the customer's cart owned by the cart component.
type Cart struct {
	ID     uuid.UUID  `json:"id"`
	UserID uuid.UUID  `json:"user_id"`
	Items  []CartItem `json:"items"`
}

type CartItem struct {
	ID       uuid.UUID `json:"id"`
	CartID   uuid.UUID `json:"cart_id"`
	Product  Product   `json:"product"`
	Quantity int       `json:"quantity"`
	// OriginalPriceCents is pinned when the line was added under a promotion.
	OriginalPriceCents *int64 `json:"original_price_cents,omitempty"`
	// DiscountedPriceCents is only meaningful together with CouponID.
	DiscountedPriceCents *int64     `json:"discounted_price_cents,omitempty"`
	CouponID             *uuid.UUID `json:"coupon_id,omitempty"`
}

type Product struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Stock      int       `json:"stock"`
	Active     bool      `json:"active"`
}

type Coupon struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	UsageLimit *int      `json:"usage_limit,omitempty"`
	UsedCount  int       `json:"used_count"`
}

type CouponUsage struct {
	ID        uuid.UUID `json:"id"`
	CouponID  uuid.UUID `json:"coupon_id"`
	UserID    uuid.UUID `json:"user_id"`
	OrderID   uuid.UUID `json:"order_id"`
	CreatedAt time.Time `json:"created_at"`
}
