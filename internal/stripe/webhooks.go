package stripe

import (
	"encoding/json"
	"errors"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

var ErrInvalidSignature = errors.New("webhook signature validation failed")

type EventKind string

const (
	EventPaymentSucceeded EventKind = "payment_succeeded"
	EventPaymentFailed    EventKind = "payment_failed"
	EventIgnored          EventKind = "ignored"
)

// PaymentEvent is a verified gateway event reduced to what reconciliation needs.
type PaymentEvent struct {
	ID            string
	Type          string
	Kind          EventKind
	TransactionID string
	FailureReason string
}

// VerifyWebhook checks the Stripe-Signature header against the raw payload
// before decoding anything from it.
func (g *Gateway) VerifyWebhook(payload []byte, signature string) (*PaymentEvent, error) {
	return VerifyWebhook(payload, signature, g.webhookSecret)
}

func VerifyWebhook(payload []byte, signature, secret string) (*PaymentEvent, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: missing stripe signature header", ErrInvalidSignature)
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &PaymentEvent{ID: event.ID, Type: string(event.Type), Kind: EventIgnored}
	switch event.Type {
	case stripeapi.EventTypePaymentIntentSucceeded:
		out.Kind = EventPaymentSucceeded
	case stripeapi.EventTypePaymentIntentPaymentFailed:
		out.Kind = EventPaymentFailed
	default:
		return out, nil
	}

	var pi stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent from event %s: %w", event.ID, err)
	}
	out.TransactionID = pi.ID
	if pi.LastPaymentError != nil {
		out.FailureReason = pi.LastPaymentError.Msg
	}
	return out, nil
}
