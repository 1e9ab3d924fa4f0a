// Package memory is an in-process implementation of store.Store. Transactions
// run serially against a copy of the state that replaces the committed state
// only when the transaction function succeeds.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

type state struct {
	users        map[uuid.UUID]models.UserSummary
	addresses    map[uuid.UUID]models.Address
	products     map[uuid.UUID]models.Product
	coupons      map[uuid.UUID]models.Coupon
	carts        map[uuid.UUID]models.Cart // keyed by user id
	orders       map[uuid.UUID]models.Order
	payments     map[uuid.UUID]models.Payment // keyed by order id
	shipments    map[uuid.UUID]models.Shipment
	couponUsages []models.CouponUsage
}

func newState() *state {
	return &state{
		users:     make(map[uuid.UUID]models.UserSummary),
		addresses: make(map[uuid.UUID]models.Address),
		products:  make(map[uuid.UUID]models.Product),
		coupons:   make(map[uuid.UUID]models.Coupon),
		carts:     make(map[uuid.UUID]models.Cart),
		orders:    make(map[uuid.UUID]models.Order),
		payments:  make(map[uuid.UUID]models.Payment),
		shipments: make(map[uuid.UUID]models.Shipment),
	}
}

func (s *state) clone() *state {
	carts := make(map[uuid.UUID]models.Cart, len(s.carts))
	for id, cart := range s.carts {
		cart.Items = slices.Clone(cart.Items)
		carts[id] = cart
	}
	orders := make(map[uuid.UUID]models.Order, len(s.orders))
	for id, order := range s.orders {
		order.Items = slices.Clone(order.Items)
		orders[id] = order
	}
	return &state{
		users:        maps.Clone(s.users),
		addresses:    maps.Clone(s.addresses),
		products:     maps.Clone(s.products),
		coupons:      maps.Clone(s.coupons),
		carts:        carts,
		orders:       orders,
		payments:     maps.Clone(s.payments),
		shipments:    maps.Clone(s.shipments),
		couponUsages: slices.Clone(s.couponUsages),
	}
}

type Store struct {
	mu    sync.RWMutex
	state *state
	now   func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(&tx{state: working, now: s.now}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	s.state = working
	return nil
}

func (s *Store) read() *tx {
	return &tx{state: s.state, now: s.now}
}

func (s *Store) GetCartWithItems(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetCartWithItems(ctx, userID)
}

func (s *Store) GetAddress(ctx context.Context, userID, addressID uuid.UUID) (*models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetAddress(ctx, userID, addressID)
}

func (s *Store) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetOrder(ctx, orderID)
}

func (s *Store) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetPaymentByTransactionID(ctx, transactionID)
}

func (s *Store) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetProduct(ctx, productID)
}

func (s *Store) GetCoupon(ctx context.Context, couponID uuid.UUID) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetCoupon(ctx, couponID)
}

// CouponUsages returns the recorded usage rows for a coupon.
func (s *Store) CouponUsages(couponID uuid.UUID) []models.CouponUsage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var usages []models.CouponUsage
	for _, usage := range s.state.couponUsages {
		if usage.CouponID == couponID {
			usages = append(usages, usage)
		}
	}
	return usages
}

// OrderCount reports how many orders have been committed.
func (s *Store) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.orders)
}
