package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodStripe PaymentMethod = "STRIPE"
)

// ParsePaymentMethod accepts the method names used by the storefront client.
func ParsePaymentMethod(value string) (PaymentMethod, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "COD", "CASH_ON_DELIVERY":
		return PaymentMethodCOD, true
	case "STRIPE", "CARD":
		return PaymentMethodStripe, true
	default:
		return "", false
	}
}

// UsesGateway reports whether the method is settled by an external payment gateway.
func (m PaymentMethod) UsesGateway() bool {
	return m == PaymentMethodStripe
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

type Payment struct {
	ID            uuid.UUID     `json:"id"`
	OrderID       uuid.UUID     `json:"order_id"`
	AmountCents   int64         `json:"amount_cents"`
	Currency      string        `json:"currency"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PaidAt        time.Time     `json:"paid_at,omitzero"`
	FailedAt      time.Time     `json:"failed_at,omitzero"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
