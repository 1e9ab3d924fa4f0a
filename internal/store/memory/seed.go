package memory

import (
	"slices"

	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
)

// The Put helpers stand in for the catalog, cart and account components that
// own these records in production.

func (s *Store) PutUser(user models.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[user.ID] = user
}

func (s *Store) PutAddress(address models.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.addresses[address.ID] = address
}

func (s *Store) PutProduct(product models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[product.ID] = product
}

func (s *Store) PutCoupon(coupon models.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.coupons[coupon.ID] = coupon
}

func (s *Store) PutCart(cart models.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	cart.Items = slices.Clone(cart.Items)
	for i := range cart.Items {
		cart.Items[i].CartID = cart.ID
		if cart.Items[i].ID == uuid.Nil {
			cart.Items[i].ID = uuid.New()
		}
	}
	s.state.carts[cart.UserID] = cart
}

// SetOrderStatus overwrites an order's status without transition checks.
func (s *Store) SetOrderStatus(orderID uuid.UUID, status models.OrderStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order, ok := s.state.orders[orderID]; ok {
		order.Status = status
		s.state.orders[orderID] = order
	}
}
