package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/email"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/events"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/observability"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
)

type UpdateStatusInput struct {
	Status         models.OrderStatus
	Carrier        string
	TrackingNumber string
	Notes          string
}

var statusTemplates = map[models.OrderStatus]email.TemplateName{
	models.StatusShipped:   email.TemplateOrderShipped,
	models.StatusDelivered: email.TemplateOrderDelivered,
	models.StatusCancelled: email.TemplateOrderCancelled,
}

// UpdateOrderStatus applies one administrative transition. Entering SHIPPED
// records the shipment details, entering DELIVERED settles an open COD
// payment, and entering CANCELLED restores stock.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, input UpdateStatusInput) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.update_status",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("UpdateOrderStatus"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx).With("order_id", orderID, "target_status", input.Status)
	meter := observability.MeterFromContext(ctx)

	if !input.Status.Valid() {
		return nil, newError(CodeInvalidRequest, fmt.Sprintf("unknown order status %q", input.Status))
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errOrderNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	previous := order.Status
	if !previous.CanTransitionTo(input.Status) {
		meter.Count("order.status.rejected", 1, sentry.WithAttributes(
			attribute.String("from", string(previous)),
			attribute.String("to", string(input.Status)),
		))
		return nil, errInvalidTransition(previous, input.Status)
	}

	now := s.now().UTC()
	var updated *models.Order
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		err := tx.UpdateOrderStatus(ctx, orderID, []models.OrderStatus{previous}, input.Status)
		if errors.Is(err, store.ErrInvalidStatusTransition) {
			return errInvalidTransition(previous, input.Status)
		}
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		if err := s.applyFulfillment(ctx, tx, order, input, now); err != nil {
			return err
		}

		updated, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to reload order: %w", err)
		}
		return nil
	})
	if err != nil {
		if _, ok := ErrorCodeOf(err); !ok {
			logger.Error("order status update failed", "error", err)
		}
		return nil, err
	}

	meter.Count("order.status.updated", 1, sentry.WithAttributes(
		attribute.String("from", string(previous)),
		attribute.String("to", string(input.Status)),
	))
	s.effects.Metrics.StatusTransition(string(previous), string(input.Status))
	logger.Info("order status updated", "order_number", updated.OrderNumber, "previous_status", previous)

	eventType := events.OrderStatusChanged
	if input.Status == models.StatusCancelled {
		eventType = events.OrderCancelled
	}
	s.effects.orderChanged(ctx, eventType, statusTemplates[input.Status], updated, previous)
	return updated, nil
}

func (s *OrderService) applyFulfillment(ctx context.Context, tx store.Tx, order *models.Order, input UpdateStatusInput, now time.Time) error {
	switch input.Status {
	case models.StatusShipped:
		shipment := shipmentOf(order)
		shipment.ShippedAt = now
		if carrier := NormalizeCarrierName(input.Carrier); carrier != "" {
			shipment.Carrier = carrier
		}
		if number := strings.TrimSpace(input.TrackingNumber); number != "" {
			shipment.TrackingNumber = number
		}
		shipment.TrackingURL = BuildTrackingURL(shipment.Carrier, shipment.TrackingNumber)
		if notes := strings.TrimSpace(input.Notes); notes != "" {
			shipment.Notes = notes
		}
		if err := tx.UpdateShipment(ctx, shipment); err != nil {
			return fmt.Errorf("failed to record shipment: %w", err)
		}

	case models.StatusDelivered:
		shipment := shipmentOf(order)
		shipment.DeliveredAt = now
		if notes := strings.TrimSpace(input.Notes); notes != "" {
			shipment.Notes = notes
		}
		if err := tx.UpdateShipment(ctx, shipment); err != nil {
			return fmt.Errorf("failed to record delivery: %w", err)
		}

		payment := order.Payment
		if payment != nil && payment.Method == models.PaymentMethodCOD && payment.Status != models.PaymentCompleted {
			if err := tx.CompletePayment(ctx, payment.ID, now); err != nil && !errors.Is(err, store.ErrInvalidStatusTransition) {
				return fmt.Errorf("failed to settle cash on delivery payment: %w", err)
			}
		}

	case models.StatusCancelled:
		return restoreStock(ctx, tx, order.Items)
	}
	return nil
}

func shipmentOf(order *models.Order) *models.Shipment {
	if order.Shipment != nil {
		shipment := *order.Shipment
		return &shipment
	}
	return &models.Shipment{ID: uuid.New(), OrderID: order.ID}
}
