package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

type tx struct {
	state *state
	now   func() time.Time
}

var _ store.Tx = (*tx)(nil)

func (t *tx) GetCartWithItems(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, ok := t.state.carts[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	items := make([]models.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if product, ok := t.state.products[item.Product.ID]; ok {
			item.Product = product
		}
		items = append(items, item)
	}
	cart.Items = items
	return &cart, nil
}

func (t *tx) GetAddress(_ context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	address, ok := t.state.addresses[addressID]
	if !ok || address.UserID != userID {
		return nil, store.ErrNotFound
	}
	return &address, nil
}

func (t *tx) GetOrder(_ context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := t.state.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	order.Items = slices.Clone(order.Items)
	if address, ok := t.state.addresses[order.AddressID]; ok {
		order.Address = &address
	}
	if payment, ok := t.state.payments[order.ID]; ok {
		order.Payment = &payment
	}
	if shipment, ok := t.state.shipments[order.ID]; ok {
		order.Shipment = &shipment
	}
	if user, ok := t.state.users[order.UserID]; ok {
		order.User = &user
	}
	return &order, nil
}

func (t *tx) GetPaymentByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	if transactionID == "" {
		return nil, store.ErrNotFound
	}
	for _, payment := range t.state.payments {
		if payment.TransactionID == transactionID {
			return &payment, nil
		}
	}
	return nil, store.ErrNotFound
}

func (t *tx) GetProduct(_ context.Context, productID uuid.UUID) (*models.Product, error) {
	product, ok := t.state.products[productID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &product, nil
}

func (t *tx) GetCoupon(_ context.Context, couponID uuid.UUID) (*models.Coupon, error) {
	coupon, ok := t.state.coupons[couponID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &coupon, nil
}

func (t *tx) CreateOrder(_ context.Context, order *models.Order) error {
	for _, existing := range t.state.orders {
		if existing.OrderNumber == order.OrderNumber {
			return fmt.Errorf("order number %s already exists", order.OrderNumber)
		}
	}

	now := t.now().UTC()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	for i := range order.Items {
		if order.Items[i].Quantity < 1 {
			return fmt.Errorf("order item %s has invalid quantity %d", order.Items[i].ProductID, order.Items[i].Quantity)
		}
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}

	stored := *order
	stored.Items = slices.Clone(order.Items)
	stored.Address, stored.Payment, stored.Shipment, stored.User = nil, nil, nil, nil
	t.state.orders[order.ID] = stored
	return nil
}

func (t *tx) CreatePayment(_ context.Context, payment *models.Payment) error {
	if _, ok := t.state.orders[payment.OrderID]; !ok {
		return fmt.Errorf("payment references unknown order %s", payment.OrderID)
	}
	if _, ok := t.state.payments[payment.OrderID]; ok {
		return fmt.Errorf("payment for order %s already exists", payment.OrderID)
	}
	now := t.now().UTC()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = now
	payment.UpdatedAt = now
	t.state.payments[payment.OrderID] = *payment
	return nil
}

func (t *tx) CreateShipment(_ context.Context, shipment *models.Shipment) error {
	if _, ok := t.state.orders[shipment.OrderID]; !ok {
		return fmt.Errorf("shipment references unknown order %s", shipment.OrderID)
	}
	if _, ok := t.state.shipments[shipment.OrderID]; ok {
		return fmt.Errorf("shipment for order %s already exists", shipment.OrderID)
	}
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	t.state.shipments[shipment.OrderID] = *shipment
	return nil
}

func (t *tx) DecrementStock(_ context.Context, productID uuid.UUID, quantity int) error {
	product, ok := t.state.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	if quantity < 1 || product.Stock < quantity {
		return store.ErrInsufficientStock
	}
	product.Stock -= quantity
	t.state.products[productID] = product
	return nil
}

func (t *tx) IncrementStock(_ context.Context, productID uuid.UUID, quantity int) error {
	product, ok := t.state.products[productID]
	if !ok {
		return store.ErrNotFound
	}
	product.Stock += quantity
	t.state.products[productID] = product
	return nil
}

func (t *tx) DeleteCartItems(_ context.Context, cartID uuid.UUID) error {
	for userID, cart := range t.state.carts {
		if cart.ID == cartID {
			cart.Items = nil
			t.state.carts[userID] = cart
			return nil
		}
	}
	return nil
}

func (t *tx) RecordCouponUsage(_ context.Context, usage *models.CouponUsage) (bool, error) {
	if _, ok := t.state.coupons[usage.CouponID]; !ok {
		return false, store.ErrNotFound
	}
	for _, existing := range t.state.couponUsages {
		if existing.CouponID == usage.CouponID && existing.OrderID == usage.OrderID {
			return false, nil
		}
	}
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	usage.CreatedAt = t.now().UTC()
	t.state.couponUsages = append(t.state.couponUsages, *usage)
	return true, nil
}

func (t *tx) IncrementCouponUsage(_ context.Context, couponID uuid.UUID) error {
	coupon, ok := t.state.coupons[couponID]
	if !ok {
		return store.ErrNotFound
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return store.ErrCouponExhausted
	}
	coupon.UsedCount++
	t.state.coupons[couponID] = coupon
	return nil
}

func (t *tx) UpdateOrderStatus(_ context.Context, orderID uuid.UUID, from []models.OrderStatus, to models.OrderStatus) error {
	order, ok := t.state.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	if !slices.Contains(from, order.Status) {
		return fmt.Errorf("%w: order is %s", store.ErrInvalidStatusTransition, order.Status)
	}
	order.Status = to
	order.UpdatedAt = t.now().UTC()
	t.state.orders[orderID] = order
	return nil
}

func (t *tx) paymentByID(paymentID uuid.UUID) (models.Payment, bool) {
	for _, payment := range t.state.payments {
		if payment.ID == paymentID {
			return payment, true
		}
	}
	return models.Payment{}, false
}

func (t *tx) CompletePayment(_ context.Context, paymentID uuid.UUID, paidAt time.Time) error {
	payment, ok := t.paymentByID(paymentID)
	if !ok {
		return store.ErrNotFound
	}
	if payment.Status != models.PaymentPending && payment.Status != models.PaymentFailed {
		return fmt.Errorf("%w: payment is %s", store.ErrInvalidStatusTransition, payment.Status)
	}
	payment.Status = models.PaymentCompleted
	payment.PaidAt = paidAt.UTC()
	payment.UpdatedAt = t.now().UTC()
	t.state.payments[payment.OrderID] = payment
	return nil
}

func (t *tx) FailPayment(_ context.Context, paymentID uuid.UUID, failedAt time.Time) error {
	payment, ok := t.paymentByID(paymentID)
	if !ok {
		return store.ErrNotFound
	}
	if payment.Status != models.PaymentPending {
		return fmt.Errorf("%w: payment is %s", store.ErrInvalidStatusTransition, payment.Status)
	}
	payment.Status = models.PaymentFailed
	payment.FailedAt = failedAt.UTC()
	payment.UpdatedAt = t.now().UTC()
	t.state.payments[payment.OrderID] = payment
	return nil
}

func (t *tx) AttachTransaction(_ context.Context, paymentID uuid.UUID, transactionID string) error {
	payment, ok := t.paymentByID(paymentID)
	if !ok {
		return store.ErrNotFound
	}
	if payment.TransactionID != "" || payment.Status == models.PaymentCompleted {
		return fmt.Errorf("%w: payment already has a transaction", store.ErrInvalidStatusTransition)
	}
	for _, other := range t.state.payments {
		if other.TransactionID == transactionID {
			return fmt.Errorf("transaction %s already attached", transactionID)
		}
	}
	payment.TransactionID = transactionID
	payment.UpdatedAt = t.now().UTC()
	t.state.payments[payment.OrderID] = payment
	return nil
}

func (t *tx) UpdateShipment(_ context.Context, shipment *models.Shipment) error {
	if _, ok := t.state.shipments[shipment.OrderID]; !ok {
		return store.ErrNotFound
	}
	t.state.shipments[shipment.OrderID] = *shipment
	return nil
}
