package services

import (
	"context"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/email"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/events"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/logging"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/observability"
)

// SideEffects runs the post-commit actions of an order change. Failures are
// logged and counted but never returned.
type SideEffects struct {
	Publisher events.Publisher
	Notifier  OrderNotifier
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

func (s *SideEffects) withDefaults() *SideEffects {
	out := SideEffects{}
	if s != nil {
		out = *s
	}
	if out.Publisher == nil {
		out.Publisher = events.NoopPublisher{}
	}
	if out.Notifier == nil {
		out.Notifier = noopNotifier{}
	}
	if out.Logger == nil {
		out.Logger = slog.New(slog.DiscardHandler)
	}
	return &out
}

// orderChanged publishes eventType and, when template is set, emails the customer.
func (s *SideEffects) orderChanged(ctx context.Context, eventType events.Type, template email.TemplateName, order *models.Order, previous models.OrderStatus) {
	logger := logging.FromContext(ctx, s.Logger)
	meter := observability.MeterFromContext(ctx)

	if err := s.Publisher.Publish(ctx, events.NewOrderEvent(eventType, order, previous)); err != nil {
		logger.Warn("failed to publish order event", "error", err, "event_type", eventType, "order_id", order.ID)
		meter.Count("order.side_effect.failed", 1, sentry.WithAttributes(attribute.String("kind", "event")))
		s.Metrics.SideEffectFailure("event")
	}

	if template == "" {
		return
	}
	if err := s.Notifier.NotifyOrder(ctx, template, order); err != nil {
		logger.Warn("failed to send order email", "error", err, "template", template, "order_id", order.ID)
		meter.Count("order.side_effect.failed", 1, sentry.WithAttributes(attribute.String("kind", "email")))
		s.Metrics.SideEffectFailure("email")
	}
}
