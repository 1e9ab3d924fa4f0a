package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/cache"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/email"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/events"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/observability"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/stripe"
)

const processedWebhookTTL = 72 * time.Hour

type WebhookOutcome string

const (
	WebhookApplied            WebhookOutcome = "applied"
	WebhookAlreadyApplied     WebhookOutcome = "already_applied"
	WebhookUnknownTransaction WebhookOutcome = "unknown_transaction"
	WebhookIgnored            WebhookOutcome = "ignored"
	WebhookDuplicate          WebhookOutcome = "duplicate"
)

// WebhookResult is always "received" for verified events.
type WebhookResult struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Outcome   WebhookOutcome `json:"outcome"`
}

// ReconcileWebhook verifies a gateway event and applies it to the payment and
// order. Replays, unknown transaction ids and out-of-order deliveries are
// acknowledged without error.
func (s *PaymentService) ReconcileWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	span := sentry.StartSpan(
		ctx,
		"service.payment_webhook.reconcile",
		sentry.WithOpName("service.payment_webhook"),
		sentry.WithDescription("ReconcileWebhook"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	event, err := s.verifier.VerifyWebhook(payload, signature)
	if err != nil {
		meter.Count("payment.webhook.rejected", 1)
		s.effects.Metrics.WebhookEvent("unverified", "invalid_signature")
		logger.Warn("rejected payment webhook", "error", err)
		e := newError(CodeInvalidSignature, "webhook signature verification failed")
		e.Err = err
		return nil, e
	}

	logger = logger.With("event_id", event.ID, "event_type", event.Type, "transaction_id", event.TransactionID)
	result := &WebhookResult{EventID: event.ID, EventType: event.Type}
	record := func(outcome WebhookOutcome) {
		result.Outcome = outcome
		meter.Count("payment.webhook.processed", 1, sentry.WithAttributes(
			attribute.String("event_type", event.Type),
			attribute.String("outcome", string(outcome)),
		))
		s.effects.Metrics.WebhookEvent(event.Type, string(outcome))
	}

	dedupeKey := cache.WebhookKey("stripe", event.ID)
	if s.cache != nil && event.ID != "" {
		if _, err := s.cache.Get(ctx, dedupeKey); err == nil {
			logger.Debug("payment webhook already processed")
			record(WebhookDuplicate)
			return result, nil
		}
	}

	var outcome WebhookOutcome
	switch event.Kind {
	case stripe.EventPaymentSucceeded:
		outcome, err = s.applyPaymentSucceeded(ctx, event)
	case stripe.EventPaymentFailed:
		outcome, err = s.applyPaymentFailed(ctx, event)
	default:
		outcome = WebhookIgnored
	}
	if err != nil {
		logger.Error("failed to reconcile payment webhook", "error", err)
		s.effects.Metrics.WebhookEvent(event.Type, "error")
		return nil, err
	}

	if s.cache != nil && event.ID != "" {
		if err := s.cache.Set(ctx, dedupeKey, string(outcome), processedWebhookTTL); err != nil {
			logger.Warn("failed to remember processed webhook", "error", err)
		}
	}

	record(outcome)
	logger.Info("payment webhook reconciled", "outcome", outcome)
	return result, nil
}

func (s *PaymentService) applyPaymentSucceeded(ctx context.Context, event *stripe.PaymentEvent) (WebhookOutcome, error) {
	payment, err := s.store.GetPaymentByTransactionID(ctx, event.TransactionID)
	if errors.Is(err, store.ErrNotFound) {
		return WebhookUnknownTransaction, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up payment: %w", err)
	}

	now := s.now().UTC()
	applied := false
	confirmed := false
	var order *models.Order
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.CompletePayment(ctx, payment.ID, now)
		if errors.Is(err, store.ErrInvalidStatusTransition) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}
		applied = true

		err = tx.UpdateOrderStatus(ctx, payment.OrderID, []models.OrderStatus{models.StatusPending}, models.StatusConfirmed)
		switch {
		case errors.Is(err, store.ErrInvalidStatusTransition):
			s.loggerFromContext(ctx).Warn("payment completed for an order that is no longer pending", "order_id", payment.OrderID)
		case err != nil:
			return fmt.Errorf("failed to confirm order: %w", err)
		default:
			confirmed = true
		}

		order, err = tx.GetOrder(ctx, payment.OrderID)
		if err != nil {
			return fmt.Errorf("failed to reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if !applied {
		return WebhookAlreadyApplied, nil
	}

	previous := order.Status
	if confirmed {
		previous = models.StatusPending
		s.effects.Metrics.StatusTransition(string(models.StatusPending), string(models.StatusConfirmed))
	}
	s.effects.orderChanged(ctx, events.PaymentCompleted, email.TemplatePaymentReceived, order, previous)
	return WebhookApplied, nil
}

func (s *PaymentService) applyPaymentFailed(ctx context.Context, event *stripe.PaymentEvent) (WebhookOutcome, error) {
	payment, err := s.store.GetPaymentByTransactionID(ctx, event.TransactionID)
	if errors.Is(err, store.ErrNotFound) {
		return WebhookUnknownTransaction, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up payment: %w", err)
	}

	applied := false
	var order *models.Order
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.FailPayment(ctx, payment.ID, s.now().UTC())
		if errors.Is(err, store.ErrInvalidStatusTransition) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to mark payment failed: %w", err)
		}
		applied = true

		order, err = tx.GetOrder(ctx, payment.OrderID)
		if err != nil {
			return fmt.Errorf("failed to reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if !applied {
		return WebhookAlreadyApplied, nil
	}

	if event.FailureReason != "" {
		s.loggerFromContext(ctx).Info("payment failed", "order_id", payment.OrderID, "reason", event.FailureReason)
	}
	s.effects.orderChanged(ctx, events.PaymentFailed, "", order, order.Status)
	return WebhookApplied, nil
}
