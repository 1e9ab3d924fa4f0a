package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/cache"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/logging"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/observability"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/stripe"
)

type PaymentGateway interface {
	CreateIntent(ctx context.Context, params stripe.IntentParams) (*stripe.Intent, error)
	GetIntent(ctx context.Context, id string) (*stripe.Intent, error)
}

type WebhookVerifier interface {
	VerifyWebhook(payload []byte, signature string) (*stripe.PaymentEvent, error)
}

type PaymentService struct {
	store    store.Store
	gateway  PaymentGateway
	verifier WebhookVerifier
	cache    cache.Provider
	effects  *SideEffects
	now      func() time.Time
	logger   *slog.Logger
}

// NewPaymentService wires the payment flows. gateway may be nil when no
// Stripe secret key is configured; cacheProvider may be nil to disable the
// webhook dedupe fast path.
func NewPaymentService(st store.Store, gateway PaymentGateway, verifier WebhookVerifier, cacheProvider cache.Provider, effects *SideEffects, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		store:    st,
		gateway:  gateway,
		verifier: verifier,
		cache:    cacheProvider,
		effects:  effects.withDefaults(),
		now:      time.Now,
		logger:   logger,
	}
}

func (s *PaymentService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type PaymentIntentResult struct {
	TransactionID string `json:"transaction_id"`
	ClientSecret  string `json:"client_secret"`
}

// CreatePaymentIntent opens, or reuses, the gateway intent for a gateway-paid order.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID, orderID uuid.UUID) (*PaymentIntentResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.payment.create_intent",
		sentry.WithOpName("service.payment"),
		sentry.WithDescription("CreatePaymentIntent"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx).With("order_id", orderID)
	meter := observability.MeterFromContext(ctx)

	order, err := ownedOrder(ctx, s.store, userID, orderID)
	if err != nil {
		return nil, err
	}
	payment := order.Payment
	if payment == nil {
		return nil, newError(CodePaymentRecordMissing, "order has no payment record")
	}
	if !payment.Method.UsesGateway() {
		return nil, newError(CodeUnsupportedPaymentMethod, fmt.Sprintf("%s payments do not use the payment gateway", payment.Method))
	}
	if payment.Status == models.PaymentCompleted {
		return nil, newError(CodeAlreadyPaid, "order is already paid")
	}
	if order.Status != models.StatusPending {
		return nil, errInvalidTransition(order.Status, models.StatusConfirmed)
	}
	if s.gateway == nil {
		return nil, errGatewayUnavailable(payment.Method)
	}

	if payment.TransactionID != "" {
		return s.existingIntent(ctx, payment.TransactionID)
	}

	intent, err := s.gateway.CreateIntent(ctx, stripe.IntentParams{
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Metadata: map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"user_id":      order.UserID.String(),
		},
		IdempotencyKey: "payment-intent:" + payment.ID.String(),
	})
	if err != nil {
		meter.Count("payment.intent.failed", 1)
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		return tx.AttachTransaction(ctx, payment.ID, intent.ID)
	})
	if errors.Is(err, store.ErrInvalidStatusTransition) {
		// Another request attached an intent first.
		current, getErr := s.store.GetOrder(ctx, orderID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to reload order: %w", getErr)
		}
		if current.Payment == nil || current.Payment.TransactionID == "" {
			return nil, fmt.Errorf("failed to attach payment intent: %w", err)
		}
		if current.Payment.Status == models.PaymentCompleted {
			return nil, newError(CodeAlreadyPaid, "order is already paid")
		}
		return s.existingIntent(ctx, current.Payment.TransactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to attach payment intent: %w", err)
	}

	meter.Count("payment.intent.created", 1)
	logger.Info("payment intent created", "transaction_id", intent.ID, "amount_cents", payment.AmountCents)
	return &PaymentIntentResult{TransactionID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (s *PaymentService) existingIntent(ctx context.Context, transactionID string) (*PaymentIntentResult, error) {
	intent, err := s.gateway.GetIntent(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return &PaymentIntentResult{TransactionID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}
