package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/email"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/events"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/logging"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/observability"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/pricing"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

// CODSettlement selects when cash-on-delivery payments become COMPLETED.
type CODSettlement string

const (
	CODSettleAtOrder    CODSettlement = "order"
	CODSettleAtDelivery CODSettlement = "delivery"
)

type CheckoutService struct {
	store           store.Store
	pricer          *pricing.Pricer
	numbers         OrderNumberGenerator
	codSettlement   CODSettlement
	// gatewayPayments is false when no payment gateway is configured.
	gatewayPayments bool
	effects         *SideEffects
	now             func() time.Time
	logger          *slog.Logger
}

func NewCheckoutService(st store.Store, pricer *pricing.Pricer, numbers OrderNumberGenerator, codSettlement CODSettlement, gatewayPayments bool, effects *SideEffects, logger *slog.Logger) *CheckoutService {
	if numbers == nil {
		numbers = TimestampOrderNumbers{}
	}
	if codSettlement == "" {
		codSettlement = CODSettleAtOrder
	}
	return &CheckoutService{
		store:           st,
		pricer:          pricer,
		numbers:         numbers,
		codSettlement:   codSettlement,
		gatewayPayments: gatewayPayments,
		effects:         effects.withDefaults(),
		now:             time.Now,
		logger:          logger,
	}
}

func (s *CheckoutService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CheckoutInput struct {
	UserID        uuid.UUID
	AddressID     uuid.UUID
	PaymentMethod models.PaymentMethod
	Notes         string
}

// Checkout turns the user's cart into an order. Order, payment and shipment
// creation, stock decrements, cart clearing and coupon usage commit together.
func (s *CheckoutService) Checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.checkout.checkout",
		sentry.WithOpName("service.checkout"),
		sentry.WithDescription("Checkout"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx).With("user_id", input.UserID)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("payment_method", string(input.PaymentMethod)))
	meter.Count("checkout.received", 1)

	order, err := s.checkout(ctx, input)
	if err != nil {
		outcome := "error"
		if code, ok := ErrorCodeOf(err); ok {
			outcome = string(code)
			logger.Info("checkout rejected", "code", code, "error", err)
		} else {
			logger.Error("checkout failed", "error", err)
		}
		meter.Count("checkout.failed", 1, sentry.WithAttributes(attribute.String("reason", outcome)))
		s.effects.Metrics.Checkout(outcome, string(input.PaymentMethod))
		return nil, err
	}

	meter.Count("checkout.completed", 1)
	s.effects.Metrics.Checkout("success", string(input.PaymentMethod))
	logger.Info("checkout completed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"total_cents", order.TotalCents,
		"items", len(order.Items),
	)

	s.effects.orderChanged(ctx, events.OrderPlaced, email.TemplateOrderPlaced, order, "")
	return order, nil
}

func (s *CheckoutService) checkout(ctx context.Context, input CheckoutInput) (*models.Order, error) {
	switch input.PaymentMethod {
	case models.PaymentMethodCOD, models.PaymentMethodStripe:
	default:
		return nil, newError(CodeUnsupportedPaymentMethod, fmt.Sprintf("payment method %q is not supported", input.PaymentMethod))
	}
	if input.PaymentMethod.UsesGateway() && !s.gatewayPayments {
		return nil, errGatewayUnavailable(input.PaymentMethod)
	}

	cart, err := s.store.GetCartWithItems(ctx, input.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errEmptyCart()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, errEmptyCart()
	}

	address, err := s.store.GetAddress(ctx, input.UserID, input.AddressID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errAddressNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load address: %w", err)
	}

	lines := make([]pricing.Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.Quantity < 1 {
			return nil, newError(CodeInvalidRequest, fmt.Sprintf("cart line for %s has an invalid quantity", item.Product.Name))
		}
		if !item.Product.Active {
			return nil, errProductUnavailable(item.Product.Name)
		}
		if item.Product.Stock < item.Quantity {
			return nil, errInsufficientStock(item.Product.Name)
		}
		lines = append(lines, s.pricer.PriceItem(item))
	}

	quote, err := s.pricer.Quote(lines)
	if err != nil {
		return nil, fmt.Errorf("failed to price cart: %w", err)
	}

	now := s.now().UTC()
	order := buildOrder(input, address.ID, cart, lines, quote, s.numbers.Next(), now)
	payment := &models.Payment{
		ID:          uuid.New(),
		OrderID:     order.ID,
		AmountCents: quote.TotalCents,
		Currency:    quote.Currency,
		Method:      input.PaymentMethod,
		Status:      models.PaymentPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if input.PaymentMethod == models.PaymentMethodCOD && s.codSettlement == CODSettleAtOrder {
		payment.Status = models.PaymentCompleted
		payment.PaidAt = now
	}

	var created *models.Order
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		if err := tx.CreateShipment(ctx, &models.Shipment{ID: uuid.New(), OrderID: order.ID}); err != nil {
			return fmt.Errorf("failed to create shipment: %w", err)
		}

		for _, item := range cart.Items {
			err := tx.DecrementStock(ctx, item.Product.ID, item.Quantity)
			if errors.Is(err, store.ErrInsufficientStock) || errors.Is(err, store.ErrNotFound) {
				return errInsufficientStock(item.Product.Name)
			}
			if err != nil {
				return fmt.Errorf("failed to reserve stock for %s: %w", item.Product.ID, err)
			}
		}

		if err := tx.DeleteCartItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}

		for _, couponID := range distinctCoupons(cart.Items) {
			inserted, err := tx.RecordCouponUsage(ctx, &models.CouponUsage{
				ID:        uuid.New(),
				CouponID:  couponID,
				UserID:    input.UserID,
				OrderID:   order.ID,
				CreatedAt: now,
			})
			if err != nil {
				return fmt.Errorf("failed to record coupon usage: %w", err)
			}
			if !inserted {
				continue
			}
			err = tx.IncrementCouponUsage(ctx, couponID)
			if errors.Is(err, store.ErrCouponExhausted) {
				return newError(CodeCouponLimitReached, "a coupon in your cart has reached its usage limit")
			}
			if err != nil {
				return fmt.Errorf("failed to increment coupon usage: %w", err)
			}
		}

		loaded, err := tx.GetOrder(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to load created order: %w", err)
		}
		created = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func buildOrder(input CheckoutInput, addressID uuid.UUID, cart *models.Cart, lines []pricing.Line, quote pricing.Quote, number string, now time.Time) *models.Order {
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		UserID:        input.UserID,
		AddressID:     addressID,
		Status:        models.StatusPending,
		SubtotalCents: quote.SubtotalCents,
		DiscountCents: quote.DiscountCents,
		TaxCents:      quote.TaxCents,
		ShippingCents: quote.ShippingCents,
		TotalCents:    quote.TotalCents,
		Currency:      quote.Currency,
		Notes:         input.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for i, item := range cart.Items {
		line := lines[i]
		order.Items = append(order.Items, models.OrderItem{
			ID:                 uuid.New(),
			OrderID:            order.ID,
			ProductID:          item.Product.ID,
			ProductName:        item.Product.Name,
			Quantity:           item.Quantity,
			OriginalPriceCents: line.OriginalCents,
			UnitPriceCents:     line.EffectiveCents,
			TotalCents:         line.EffectiveCents * int64(item.Quantity),
			CouponID:           item.CouponID,
		})
	}
	return order
}

// distinctCoupons returns each pinned coupon once, in cart order.
func distinctCoupons(items []models.CartItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for _, item := range items {
		if item.CouponID == nil {
			continue
		}
		if _, ok := seen[*item.CouponID]; ok {
			continue
		}
		seen[*item.CouponID] = struct{}{}
		out = append(out, *item.CouponID)
	}
	return out
}
