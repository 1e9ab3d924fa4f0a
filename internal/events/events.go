// Package events publishes order lifecycle events after the owning
// transaction has committed.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
)

type Type string

const (
	OrderPlaced        Type = "order.placed"
	OrderCancelled     Type = "order.cancelled"
	OrderStatusChanged Type = "order.status_changed"
	PaymentCompleted   Type = "payment.completed"
	PaymentFailed      Type = "payment.failed"
)

type Event struct {
	ID             uuid.UUID            `json:"id"`
	Type           Type                 `json:"type"`
	OccurredAt     time.Time            `json:"occurred_at"`
	OrderID        uuid.UUID            `json:"order_id"`
	OrderNumber    string               `json:"order_number"`
	UserID         uuid.UUID            `json:"user_id"`
	Status         models.OrderStatus   `json:"status"`
	PreviousStatus models.OrderStatus   `json:"previous_status,omitempty"`
	PaymentMethod  models.PaymentMethod `json:"payment_method,omitempty"`
	PaymentStatus  models.PaymentStatus `json:"payment_status,omitempty"`
	TotalCents     int64                `json:"total_cents"`
	Currency       string               `json:"currency"`
}

// NewOrderEvent snapshots the order and, when loaded, its payment.
func NewOrderEvent(eventType Type, order *models.Order, previous models.OrderStatus) Event {
	e := Event{
		ID:             uuid.New(),
		Type:           eventType,
		OccurredAt:     time.Now().UTC(),
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		TotalCents:     order.TotalCents,
		Currency:       order.Currency,
	}
	if order.Payment != nil {
		e.PaymentMethod = order.Payment.Method
		e.PaymentStatus = order.Payment.Status
	}
	return e
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

func (NoopPublisher) Close() error { return nil }
