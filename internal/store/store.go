// Package store defines the persistence port used by the order services.
// Implementations live in internal/db (Postgres) and internal/store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
)

var (
	ErrNotFound                = errors.New("record not found")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrCouponExhausted         = errors.New("coupon usage limit reached")
)

// Reader covers the lookups the services perform outside or inside a transaction.
type Reader interface {
	// GetCartWithItems returns ErrNotFound when the user has no cart.
	GetCartWithItems(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	GetAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error)
	// GetOrder loads the full aggregate: items, address, payment, shipment and user summary.
	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	GetCoupon(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error)
}

// Tx is the write surface available inside one atomic unit of work.
type Tx interface {
	Reader

	CreateOrder(ctx context.Context, order *models.Order) error
	CreatePayment(ctx context.Context, payment *models.Payment) error
	CreateShipment(ctx context.Context, shipment *models.Shipment) error

	// DecrementStock applies only when the current stock covers quantity,
	// otherwise it returns ErrInsufficientStock and changes nothing.
	DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error
	IncrementStock(ctx context.Context, productID uuid.UUID, quantity int) error

	DeleteCartItems(ctx context.Context, cartID uuid.UUID) error

	// RecordCouponUsage reports false when a usage row for (coupon, order) already exists.
	RecordCouponUsage(ctx context.Context, usage *models.CouponUsage) (bool, error)
	// IncrementCouponUsage returns ErrCouponExhausted when the usage limit is reached.
	IncrementCouponUsage(ctx context.Context, couponID uuid.UUID) error

	// UpdateOrderStatus moves the order to "to" only while it is in one of "from".
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, from []models.OrderStatus, to models.OrderStatus) error

	// CompletePayment and FailPayment are guarded by the current payment status
	// and return ErrInvalidStatusTransition when the guard does not match.
	CompletePayment(ctx context.Context, paymentID uuid.UUID, paidAt time.Time) error
	FailPayment(ctx context.Context, paymentID uuid.UUID, failedAt time.Time) error
	// AttachTransaction stores the gateway id on a payment that has none yet.
	AttachTransaction(ctx context.Context, paymentID uuid.UUID, transactionID string) error

	UpdateShipment(ctx context.Context, shipment *models.Shipment) error
}

// Store exposes reads plus a transaction runner. fn's writes commit together
// when it returns nil and are discarded otherwise.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
