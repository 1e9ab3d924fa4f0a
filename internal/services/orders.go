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
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

type OrderService struct {
	store   store.Store
	effects *SideEffects
	now     func() time.Time
	logger  *slog.Logger
}

func NewOrderService(st store.Store, effects *SideEffects, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:   st,
		effects: effects.withDefaults(),
		now:     time.Now,
		logger:  logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// GetOrder returns the order aggregate if it belongs to userID.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return ownedOrder(ctx, s.store, userID, orderID)
}

func ownedOrder(ctx context.Context, r store.Reader, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := r.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errOrderNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.UserID != userID {
		return nil, errOrderNotFound()
	}
	return order, nil
}

// CancelOrder cancels a PENDING or CONFIRMED order and restores its stock.
// Payment and coupon usage are left as they are.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.cancel",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("CancelOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx).With("order_id", orderID, "user_id", userID)
	meter := observability.MeterFromContext(ctx)
	recordOutcome := func(outcome string) {
		meter.Count("order.cancel", 1, sentry.WithAttributes(attribute.String("outcome", outcome)))
		s.effects.Metrics.Cancellation(outcome)
	}

	order, err := ownedOrder(ctx, s.store, userID, orderID)
	if err != nil {
		recordOutcome("not_found")
		return nil, err
	}
	if !order.Status.Cancellable() {
		recordOutcome("not_cancellable")
		return nil, errNotCancellable(order.Status)
	}

	previous := order.Status
	var cancelled *models.Order
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.UpdateOrderStatus(ctx, orderID, []models.OrderStatus{models.StatusPending, models.StatusConfirmed}, models.StatusCancelled)
		if errors.Is(err, store.ErrInvalidStatusTransition) {
			current, getErr := tx.GetOrder(ctx, orderID)
			if getErr != nil {
				return fmt.Errorf("failed to reload order: %w", getErr)
			}
			return errNotCancellable(current.Status)
		}
		if err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		if err := restoreStock(ctx, tx, order.Items); err != nil {
			return err
		}

		cancelled, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := ErrorCodeOf(err); ok {
			recordOutcome("not_cancellable")
		} else {
			recordOutcome("error")
			logger.Error("order cancellation failed", "error", err)
		}
		return nil, err
	}

	recordOutcome("cancelled")
	s.effects.Metrics.StatusTransition(string(previous), string(models.StatusCancelled))
	logger.Info("order cancelled", "order_number", cancelled.OrderNumber, "previous_status", previous)
	s.effects.orderChanged(ctx, events.OrderCancelled, email.TemplateOrderCancelled, cancelled, previous)
	return cancelled, nil
}

func restoreStock(ctx context.Context, tx store.Tx, items []models.OrderItem) error {
	for _, item := range items {
		if err := tx.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("failed to restore stock for %s: %w", item.ProductID, err)
		}
	}
	return nil
}
