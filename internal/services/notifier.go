package services

import (
	"context"
	"fmt"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/email"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
)

type OrderNotifier interface {
	NotifyOrder(ctx context.Context, template email.TemplateName, order *models.Order) error
}

type EmailNotifier struct {
	provider  email.Provider
	renderer  *email.Renderer
	storeName string
}

func NewEmailNotifier(provider email.Provider, renderer *email.Renderer, storeName string) *EmailNotifier {
	return &EmailNotifier{provider: provider, renderer: renderer, storeName: storeName}
}

// NotifyOrder renders and sends one order email. Orders without a customer
// email address are skipped.
func (n *EmailNotifier) NotifyOrder(ctx context.Context, template email.TemplateName, order *models.Order) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}
	info := BuildOrderInfo(n.storeName, order)
	if info.CustomerEmail == "" {
		return nil
	}

	msg, err := n.renderer.Render(template, info)
	if err != nil {
		return err
	}
	if err := n.provider.SendEmail(ctx, msg); err != nil {
		return fmt.Errorf("failed to send %s email for %s: %w", template, order.OrderNumber, err)
	}
	return nil
}

type noopNotifier struct{}

func (noopNotifier) NotifyOrder(context.Context, email.TemplateName, *models.Order) error {
	return nil
}
