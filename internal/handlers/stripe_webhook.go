package handlers

import (
	"io"
	"net/http"
)

type webhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome,omitempty"`
}

// StripeWebhook hands the raw body to the reconciler, which verifies the
// signature before anything else. Every verified event is acknowledged with
// 200 so the gateway stops retrying.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("failed to read Stripe webhook payload", "error", err)
		h.respondStatus(w, r, http.StatusBadRequest, "INVALID_REQUEST", "invalid webhook body")
		return
	}

	result, err := h.payments.ReconcileWebhook(ctx, payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respond(w, r, http.StatusOK, webhookResponse{Received: true, Outcome: string(result.Outcome)})
}
