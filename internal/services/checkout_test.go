package services

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/email"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/events"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/pricing"
)

func int64Ptr(v int64) *int64 { return &v }

func TestCheckout_DiscountedCODScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	product := f.product("Herbal Tea", 50000, 10)
	coupon := models.Coupon{ID: uuid.New(), Code: "TEA10"}
	f.store.PutCoupon(coupon)
	f.fillCart(f.user.ID, models.CartItem{
		Product:              product,
		Quantity:             2,
		OriginalPriceCents:   int64Ptr(50000),
		DiscountedPriceCents: int64Ptr(45000),
		CouponID:             &coupon.ID,
	})

	order, err := f.checkoutService(CODSettleAtOrder).Checkout(context.Background(), CheckoutInput{
		UserID:        f.user.ID,
		AddressID:     f.address.ID,
		PaymentMethod: models.PaymentMethodCOD,
		Notes:         "leave at the door",
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	if order.SubtotalCents != 100000 || order.DiscountCents != 10000 || order.TaxCents != 16200 ||
		order.ShippingCents != 0 || order.TotalCents != 106200 {
		t.Fatalf("unexpected totals: %+v", order)
	}
	if order.Status != models.StatusPending {
		t.Fatalf("order status = %s, want PENDING", order.Status)
	}
	if order.Payment == nil || order.Payment.Status != models.PaymentCompleted || order.Payment.PaidAt.IsZero() {
		t.Fatalf("unexpected payment: %+v", order.Payment)
	}
	if order.Payment.AmountCents != order.TotalCents {
		t.Fatalf("payment amount = %d, want %d", order.Payment.AmountCents, order.TotalCents)
	}
	if order.Shipment == nil || !order.Shipment.ShippedAt.IsZero() {
		t.Fatalf("expected an empty shipment, got %+v", order.Shipment)
	}
	if order.Address == nil || order.Address.ID != f.address.ID || order.User == nil || order.User.Email != f.user.Email {
		t.Fatalf("aggregate not fully loaded: %+v", order)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPriceCents != 45000 || order.Items[0].TotalCents != 90000 {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
	if order.OrderNumber == "" || order.Notes != "leave at the door" {
		t.Fatalf("unexpected header: %+v", order)
	}

	if got := f.stock(t, product.ID); got != 8 {
		t.Fatalf("stock = %d, want 8", got)
	}
	cart, err := f.store.GetCartWithItems(context.Background(), f.user.ID)
	if err != nil || len(cart.Items) != 0 {
		t.Fatalf("cart should be empty, got %+v, %v", cart, err)
	}
	if got := f.publisher.types(); !slices.Equal(got, []events.Type{events.OrderPlaced}) {
		t.Fatalf("events = %v", got)
	}
	if !slices.Equal(f.notifier.templates, []email.TemplateName{email.TemplateOrderPlaced}) {
		t.Fatalf("templates = %v", f.notifier.templates)
	}
}

func TestCheckout_PaymentStatusByMethod(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     models.PaymentMethod
		settlement CODSettlement
		want       models.PaymentStatus
	}{
		{name: "cod settled at order", method: models.PaymentMethodCOD, settlement: CODSettleAtOrder, want: models.PaymentCompleted},
		{name: "cod settled at delivery", method: models.PaymentMethodCOD, settlement: CODSettleAtDelivery, want: models.PaymentPending},
		{name: "stripe", method: models.PaymentMethodStripe, settlement: CODSettleAtOrder, want: models.PaymentPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			product := f.product("Neem Soap", 20000, 5)
			f.fillCart(f.user.ID, models.CartItem{Product: product, Quantity: 1})

			order, err := f.checkoutService(tt.settlement).Checkout(context.Background(), CheckoutInput{
				UserID:        f.user.ID,
				AddressID:     f.address.ID,
				PaymentMethod: tt.method,
			})
			if err != nil {
				t.Fatalf("Checkout() error = %v", err)
			}
			if order.Payment.Status != tt.want {
				t.Fatalf("payment status = %s, want %s", order.Payment.Status, tt.want)
			}
			if tt.want == models.PaymentPending && !order.Payment.PaidAt.IsZero() {
				t.Fatal("pending payment should not have paidAt")
			}
			// 20000 is under the free shipping threshold.
			if order.ShippingCents != 5000 || order.TotalCents != 20000+3600+5000 {
				t.Fatalf("unexpected totals: %+v", order)
			}
		})
	}
}

func TestCheckout_RejectsBeforeAnyWrite(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(f *fixture) CheckoutInput
		want    ErrorCode
		product string
	}{
		{
			name: "no cart",
			setup: func(f *fixture) CheckoutInput {
				return CheckoutInput{UserID: f.user.ID, AddressID: f.address.ID, PaymentMethod: models.PaymentMethodCOD}
			},
			want: CodeEmptyCart,
		},
		{
			name: "cart without items",
			setup: func(f *fixture) CheckoutInput {
				f.fillCart(f.user.ID)
				return CheckoutInput{UserID: f.user.ID, AddressID: f.address.ID, PaymentMethod: models.PaymentMethodCOD}
			},
			want: CodeEmptyCart,
		},
		{
			name: "address of another user",
			setup: func(f *fixture) CheckoutInput {
				f.fillCart(f.user.ID, models.CartItem{Product: f.product("Ghee", 1000, 5), Quantity: 1})
				other := models.Address{ID: uuid.New(), UserID: uuid.New(), Line1: "elsewhere"}
				f.store.PutAddress(other)
				return CheckoutInput{UserID: f.user.ID, AddressID: other.ID, PaymentMethod: models.PaymentMethodCOD}
			},
			want: CodeAddressNotFound,
		},
		{
			name: "stock below requested quantity",
			setup: func(f *fixture) CheckoutInput {
				f.fillCart(f.user.ID,
					models.CartItem{Product: f.product("Ghee", 1000, 5), Quantity: 1},
					models.CartItem{Product: f.product("Saffron", 90000, 1), Quantity: 2},
				)
				return CheckoutInput{UserID: f.user.ID, AddressID: f.address.ID, PaymentMethod: models.PaymentMethodCOD}
			},
			want:    CodeInsufficientStock,
			product: "Saffron",
		},
		{
			name: "product no longer sold",
			setup: func(f *fixture) CheckoutInput {
				retired := models.Product{ID: uuid.New(), Name: "Old Kajal", PriceCents: 20000, Stock: 10}
				f.store.PutProduct(retired)
				f.fillCart(f.user.ID,
					models.CartItem{Product: f.product("Ghee", 1000, 5), Quantity: 1},
					models.CartItem{Product: retired, Quantity: 1},
				)
				return CheckoutInput{UserID: f.user.ID, AddressID: f.address.ID, PaymentMethod: models.PaymentMethodCOD}
			},
			want:    CodeProductUnavailable,
			product: "Old Kajal",
		},
		{
			name: "unknown payment method",
			setup: func(f *fixture) CheckoutInput {
				f.fillCart(f.user.ID, models.CartItem{Product: f.product("Ghee", 1000, 5), Quantity: 1})
				return CheckoutInput{UserID: f.user.ID, AddressID: f.address.ID, PaymentMethod: "UPI_LATER"}
			},
			want: CodeUnsupportedPaymentMethod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			input := tt.setup(f)
			_, err := f.checkoutService(CODSettleAtOrder).Checkout(context.Background(), input)
			checkoutErr := requireCode(t, err, tt.want)
			if checkoutErr.Product != tt.product {
				t.Fatalf("product = %q, want %q", checkoutErr.Product, tt.product)
			}
			if f.store.OrderCount() != 0 {
				t.Fatal("no order should be created")
			}
			if len(f.publisher.types()) != 0 {
				t.Fatal("no event should be published")
			}
		})
	}
}

func TestCheckout_GatewayMethodWithoutGateway(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	product := f.product("Rose Water", 30000, 4)
	f.fillCart(f.user.ID, models.CartItem{Product: product, Quantity: 2})
	svc := NewCheckoutService(f.store, pricing.NewPricer(pricing.DefaultPolicy()), nil, CODSettleAtOrder, false, f.effects, discardLogger())

	_, err := svc.Checkout(context.Background(), CheckoutInput{UserID: f.user.ID, AddressID: f.address.ID, PaymentMethod: models.PaymentMethodStripe})
	requireCode(t, err, CodeUnsupportedPaymentMethod)
	if f.store.OrderCount() != 0 {
		t.Fatal("no order should be created")
	}
	if got := f.stock(t, product.ID); got != 4 {
		t.Fatalf("stock = %d, want 4", got)
	}

	order, err := svc.Checkout(context.Background(), CheckoutInput{UserID: f.user.ID, AddressID: f.address.ID, PaymentMethod: models.PaymentMethodCOD})
	if err != nil {
		t.Fatalf("COD Checkout() error = %v", err)
	}
	if order.Payment.Status != models.PaymentCompleted {
		t.Fatalf("payment status = %s, want COMPLETED", order.Payment.Status)
	}
}

func TestCheckout_FailureInsideTransactionLeavesStockUnchanged(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	tea := f.product("Herbal Tea", 50000, 10)
	soap := f.product("Neem Soap", 20000, 4)
	coupon := models.Coupon{ID: uuid.New(), Code: "TEA10"}
	f.store.PutCoupon(coupon)
	f.fillCart(f.user.ID,
		models.CartItem{Product: tea, Quantity: 3, DiscountedPriceCents: int64Ptr(45000), CouponID: &coupon.ID},
		models.CartItem{Product: soap, Quantity: 2},
	)

	st := &failingStore{Store: f.store, failDeleteCart: errors.New("cart service unavailable")}
	svc := NewCheckoutService(st, pricing.NewPricer(pricing.DefaultPolicy()), nil, CODSettleAtOrder, true, f.effects, discardLogger())

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:        f.user.ID,
		AddressID:     f.address.ID,
		PaymentMethod: models.PaymentMethodCOD,
	})
	if err == nil {
		t.Fatal("expected checkout to fail")
	}
	if _, ok := ErrorCodeOf(err); ok {
		t.Fatalf("expected an internal error, got %v", err)
	}

	if got := f.stock(t, tea.ID); got != 10 {
		t.Fatalf("tea stock = %d, want 10", got)
	}
	if got := f.stock(t, soap.ID); got != 4 {
		t.Fatalf("soap stock = %d, want 4", got)
	}
	if f.store.OrderCount() != 0 {
		t.Fatal("order must not survive a rolled back transaction")
	}
	if len(f.store.CouponUsages(coupon.ID)) != 0 {
		t.Fatal("coupon usage must not survive a rolled back transaction")
	}
	cart, _ := f.store.GetCartWithItems(context.Background(), f.user.ID)
	if len(cart.Items) != 2 {
		t.Fatalf("cart items = %d, want 2", len(cart.Items))
	}
}

func TestCheckout_ConcurrentCheckoutsNeverOversell(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	product := f.product("Limited Honey", 30000, 3)
	svc := f.checkoutService(CODSettleAtOrder)

	const buyers = 2
	inputs := make([]CheckoutInput, buyers)
	for i := range inputs {
		user := models.UserSummary{ID: uuid.New(), Email: "buyer@example.com"}
		f.store.PutUser(user)
		address := models.Address{ID: uuid.New(), UserID: user.ID, Line1: "1 Market St"}
		f.store.PutAddress(address)
		f.fillCart(user.ID, models.CartItem{Product: product, Quantity: 3})
		inputs[i] = CheckoutInput{UserID: user.ID, AddressID: address.ID, PaymentMethod: models.PaymentMethodCOD}
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i, input := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Checkout(context.Background(), input)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		requireCode(t, err, CodeInsufficientStock)
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want exactly 1", succeeded)
	}
	if got := f.stock(t, product.ID); got != 0 {
		t.Fatalf("stock = %d, want 0", got)
	}
}

func TestCheckout_StockConservation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	a := f.product("A", 1000, 7)
	b := f.product("B", 2500, 9)
	f.fillCart(f.user.ID,
		models.CartItem{Product: a, Quantity: 4},
		models.CartItem{Product: b, Quantity: 5},
	)
	before := f.stock(t, a.ID) + f.stock(t, b.ID)

	order, err := f.checkoutService(CODSettleAtOrder).Checkout(context.Background(), CheckoutInput{
		UserID: f.user.ID, AddressID: f.address.ID, PaymentMethod: models.PaymentMethodStripe,
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	ordered := 0
	for _, item := range order.Items {
		ordered += item.Quantity
	}
	after := f.stock(t, a.ID) + f.stock(t, b.ID)
	if before-after != ordered || ordered != 9 {
		t.Fatalf("stock moved by %d, ordered %d", before-after, ordered)
	}
}

func TestCheckout_CouponCountedOncePerOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	coupon := models.Coupon{ID: uuid.New(), Code: "FESTIVE"}
	f.store.PutCoupon(coupon)
	f.fillCart(f.user.ID,
		models.CartItem{Product: f.product("Lamp", 40000, 5), Quantity: 1, DiscountedPriceCents: int64Ptr(36000), CouponID: &coupon.ID},
		models.CartItem{Product: f.product("Wick", 1000, 50), Quantity: 10, DiscountedPriceCents: int64Ptr(900), CouponID: &coupon.ID},
	)

	order, err := f.checkoutService(CODSettleAtOrder).Checkout(context.Background(), CheckoutInput{
		UserID: f.user.ID, AddressID: f.address.ID, PaymentMethod: models.PaymentMethodCOD,
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}

	usages := f.store.CouponUsages(coupon.ID)
	if len(usages) != 1 || usages[0].OrderID != order.ID || usages[0].UserID != f.user.ID {
		t.Fatalf("usages = %+v", usages)
	}
	stored, _ := f.store.GetCoupon(context.Background(), coupon.ID)
	if stored.UsedCount != 1 {
		t.Fatalf("used count = %d, want 1", stored.UsedCount)
	}
	if order.DiscountCents != 4000+1000 {
		t.Fatalf("discount = %d", order.DiscountCents)
	}
}

func TestCheckout_CouponLimitRollsBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	limit := 1
	coupon := models.Coupon{ID: uuid.New(), Code: "ONCE", UsageLimit: &limit, UsedCount: 1}
	f.store.PutCoupon(coupon)
	product := f.product("Lamp", 40000, 5)
	f.fillCart(f.user.ID, models.CartItem{Product: product, Quantity: 2, DiscountedPriceCents: int64Ptr(36000), CouponID: &coupon.ID})

	_, err := f.checkoutService(CODSettleAtOrder).Checkout(context.Background(), CheckoutInput{
		UserID: f.user.ID, AddressID: f.address.ID, PaymentMethod: models.PaymentMethodCOD,
	})
	requireCode(t, err, CodeCouponLimitReached)

	if got := f.stock(t, product.ID); got != 5 {
		t.Fatalf("stock = %d, want 5", got)
	}
	if f.store.OrderCount() != 0 || len(f.store.CouponUsages(coupon.ID)) != 0 {
		t.Fatal("checkout must leave no trace")
	}
}

func TestCheckout_SideEffectFailuresDoNotFailCheckout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.publisher.err = errors.New("broker down")
	f.notifier.err = errors.New("smtp down")

	order := f.placeOrder(t, models.PaymentMethodCOD, f.product("Ghee", 1000, 5), 1)
	if order == nil || order.Status != models.StatusPending {
		t.Fatalf("unexpected order %+v", order)
	}
}

func TestDistinctCoupons(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()
	items := []models.CartItem{{CouponID: &a}, {}, {CouponID: &b}, {CouponID: &a}}
	if got := distinctCoupons(items); !slices.Equal(got, []uuid.UUID{a, b}) {
		t.Fatalf("distinctCoupons() = %v", got)
	}
}
