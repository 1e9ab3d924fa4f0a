package stripe

import (
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84/webhook"
)

const testSecret = "whsec_test_secret"

func sign(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Header
}

func TestVerifyWebhook_PaymentIntentEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		kind    EventKind
		txnID   string
	}{
		{
			name:    "succeeded",
			payload: `{"id":"evt_1","object":"event","api_version":"2026-01-28.clover","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","object":"payment_intent"}}}`,
			kind:    EventPaymentSucceeded,
			txnID:   "pi_123",
		},
		{
			name:    "failed",
			payload: `{"id":"evt_2","object":"event","api_version":"2026-01-28.clover","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_456","object":"payment_intent"}}}`,
			kind:    EventPaymentFailed,
			txnID:   "pi_456",
		},
		{
			name:    "other event type",
			payload: `{"id":"evt_3","object":"event","api_version":"2026-01-28.clover","type":"charge.refunded","data":{"object":{"id":"ch_1","object":"charge"}}}`,
			kind:    EventIgnored,
		},
		{
			name:    "older api version",
			payload: `{"id":"evt_4","object":"event","api_version":"2020-08-27","type":"payment_intent.succeeded","data":{"object":{"id":"pi_789","object":"payment_intent"}}}`,
			kind:    EventPaymentSucceeded,
			txnID:   "pi_789",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			payload := []byte(tt.payload)
			event, err := VerifyWebhook(payload, sign(payload, testSecret), testSecret)
			if err != nil {
				t.Fatalf("VerifyWebhook() error = %v", err)
			}
			if event.Kind != tt.kind || event.TransactionID != tt.txnID {
				t.Fatalf("unexpected event %+v", event)
			}
		})
	}
}

func TestVerifyWebhook_RejectsBadSignatures(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`)
	tampered := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_999"}}}`)

	tests := []struct {
		name      string
		payload   []byte
		signature string
		secret    string
	}{
		{name: "missing header", payload: payload, signature: "", secret: testSecret},
		{name: "wrong secret", payload: payload, signature: sign(payload, "whsec_other"), secret: testSecret},
		{name: "tampered body", payload: tampered, signature: sign(payload, testSecret), secret: testSecret},
		{name: "no configured secret", payload: payload, signature: sign(payload, testSecret), secret: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := VerifyWebhook(tt.payload, tt.signature, tt.secret); !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("VerifyWebhook() error = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestGatewayVerifyWebhookUsesConfiguredSecret(t *testing.T) {
	t.Parallel()

	g := NewGateway("sk_test_123", testSecret, nil)
	payload := []byte(`{"id":"evt_5","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_5","object":"payment_intent"}}}`)
	event, err := g.VerifyWebhook(payload, sign(payload, testSecret))
	if err != nil {
		t.Fatalf("VerifyWebhook() error = %v", err)
	}
	if event.TransactionID != "pi_5" {
		t.Fatalf("TransactionID = %q", event.TransactionID)
	}
}

func TestCreateIntentRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	g := NewGateway("sk_test_123", testSecret, nil)
	if _, err := g.CreateIntent(t.Context(), IntentParams{AmountCents: 0, Currency: "inr"}); err == nil {
		t.Fatal("expected error")
	}
}
