package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/cache"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/observability"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/services"
)

const (
	checkoutReplayTTL    = 24 * time.Hour
	checkoutInFlightTTL  = 2 * time.Minute
	maxIdempotencyKeyLen = 255
)

// checkoutRecord is what an Idempotency-Key maps to in the cache. Response is
// empty while the first request is still running.
type checkoutRecord struct {
	Fingerprint string          `json:"fingerprint"`
	Response    json.RawMessage `json:"response,omitempty"`
}

func (c checkoutRecord) encode() string {
	b, _ := json.Marshal(c)
	return string(b)
}

// checkoutFingerprint identifies the checkout a key was first used for.
func checkoutFingerprint(addressID uuid.UUID, method models.PaymentMethod, notes string) string {
	sum := sha256.Sum256([]byte(addressID.String() + "\x00" + string(method) + "\x00" + notes))
	return hex.EncodeToString(sum[:])
}

type checkoutRequest struct {
	AddressID     string `json:"address_id" validate:"required,uuid"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	Notes         string `json:"notes" validate:"max=1000"`
}

type checkoutResponse struct {
	Success     bool          `json:"success"`
	OrderID     uuid.UUID     `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	TotalCents  int64         `json:"total_cents"`
	Currency    string        `json:"currency"`
	Order       *models.Order `json:"order"`
}

// Checkout converts the caller's cart into an order. Requests carrying an
// Idempotency-Key replay the first successful response for 24 hours, as long
// as the body matches the one the key was first used with.
func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	userID := currentUserID(r)

	var req checkoutRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	method, ok := models.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		h.respondError(w, r, &services.CheckoutError{
			Code:    services.CodeUnsupportedPaymentMethod,
			Message: "unsupported payment method " + req.PaymentMethod,
		})
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(idempotencyKey) > maxIdempotencyKeyLen {
		h.respondError(w, r, invalidRequest("Idempotency-Key is too long"))
		return
	}

	addressID := uuid.MustParse(req.AddressID)
	inFlight := checkoutRecord{Fingerprint: checkoutFingerprint(addressID, method, req.Notes)}

	var cacheKey string
	if idempotencyKey != "" {
		cacheKey = cache.CheckoutKey(userID.String(), idempotencyKey)
		reserved, err := h.cacheProvider.SetIfAbsent(ctx, cacheKey, inFlight.encode(), checkoutInFlightTTL)
		switch {
		case err != nil:
			logger.Warn("checkout idempotency unavailable, continuing without it", "error", err)
			cacheKey = ""
		case !reserved:
			h.replayCheckout(w, r, cacheKey, inFlight.Fingerprint)
			return
		}
	}

	order, err := h.checkout.Checkout(ctx, services.CheckoutInput{
		UserID:        userID,
		AddressID:     addressID,
		PaymentMethod: method,
		Notes:         req.Notes,
	})
	if err != nil {
		if cacheKey != "" {
			if delErr := h.cacheProvider.Delete(ctx, cacheKey); delErr != nil {
				logger.Warn("failed to release checkout idempotency key", "error", delErr)
			}
		}
		h.respondError(w, r, err)
		return
	}

	body, err := json.Marshal(checkoutResponse{
		Success:     true,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TotalCents:  order.TotalCents,
		Currency:    order.Currency,
		Order:       order,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if cacheKey != "" {
		done := checkoutRecord{Fingerprint: inFlight.Fingerprint, Response: body}
		if err := h.cacheProvider.Set(ctx, cacheKey, done.encode(), checkoutReplayTTL); err != nil {
			logger.Warn("failed to store checkout response for replay", "order_id", order.ID, "error", err)
			// The order exists, so the key must not free up after the in-flight TTL.
			if err := h.cacheProvider.Set(ctx, cacheKey, inFlight.encode(), checkoutReplayTTL); err != nil {
				logger.Error("failed to hold checkout idempotency key", "order_id", order.ID, "error", err)
			}
		}
	}

	writeRawJSON(w, http.StatusCreated, body)
	meter.Count("http.checkout.created", 1, sentry.WithAttributes(attribute.String("payment_method", string(method))))
}

func (h *Handlers) replayCheckout(w http.ResponseWriter, r *http.Request, cacheKey, fingerprint string) {
	ctx := r.Context()
	stored, err := h.cacheProvider.Get(ctx, cacheKey)
	var record checkoutRecord
	if err != nil || json.Unmarshal([]byte(stored), &record) != nil {
		h.respondStatus(w, r, http.StatusConflict, "CHECKOUT_IN_PROGRESS", "a checkout with this Idempotency-Key is still being processed")
		return
	}
	if record.Fingerprint != fingerprint {
		h.respondStatus(w, r, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "this Idempotency-Key was already used for a different checkout")
		return
	}
	if len(record.Response) == 0 {
		h.respondStatus(w, r, http.StatusConflict, "CHECKOUT_IN_PROGRESS", "a checkout with this Idempotency-Key is still being processed")
		return
	}

	observability.MeterFromContext(ctx).Count("http.checkout.replayed", 1)
	h.loggerFromContext(ctx).Info("replaying checkout response for repeated idempotency key")
	w.Header().Set("Idempotent-Replayed", "true")
	writeRawJSON(w, http.StatusCreated, record.Response)
}

func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
