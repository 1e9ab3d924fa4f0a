// Package stripe adapts the Stripe API to the storefront payment gateway port.
package stripe

import (
	"context"
	"fmt"
	"net/http"

	stripeapi "github.com/stripe/stripe-go/v84"
)

type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	AmountCents  int64
	Currency     string
}

type IntentParams struct {
	AmountCents    int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

type Gateway struct {
	client        *stripeapi.Client
	webhookSecret string
}

// NewGateway builds a gateway. A nil httpClient uses the Stripe default.
func NewGateway(secretKey, webhookSecret string, httpClient *http.Client) *Gateway {
	var opts []stripeapi.ClientOption
	if httpClient != nil {
		opts = append(opts, stripeapi.WithBackends(stripeapi.NewBackendsWithConfig(&stripeapi.BackendConfig{
			HTTPClient: httpClient,
		})))
	}
	return &Gateway{
		client:        stripeapi.NewClient(secretKey, opts...),
		webhookSecret: webhookSecret,
	}
}

func (g *Gateway) CreateIntent(ctx context.Context, params IntentParams) (*Intent, error) {
	if params.AmountCents <= 0 {
		return nil, fmt.Errorf("intent amount must be positive")
	}

	createParams := &stripeapi.PaymentIntentCreateParams{
		Amount:   stripeapi.Int64(params.AmountCents),
		Currency: stripeapi.String(params.Currency),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
		Metadata: params.Metadata,
	}
	if params.IdempotencyKey != "" {
		createParams.SetIdempotencyKey(params.IdempotencyKey)
	}

	pi, err := g.client.V1PaymentIntents.Create(ctx, createParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	return intentFromStripe(pi), nil
}

func (g *Gateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	pi, err := g.client.V1PaymentIntents.Retrieve(ctx, id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent %s: %w", id, err)
	}
	return intentFromStripe(pi), nil
}

func intentFromStripe(pi *stripeapi.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
	}
}
