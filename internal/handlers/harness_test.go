package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/auth"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/cache"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/observability"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/pricing"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/services"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store/memory"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/stripe"
)

const (
	testJWTSecret     = "handlers-test-secret-0123456789abcdef"
	testWebhookSecret = "whsec_handlers_test"
)

// harness wires the real services over the in-memory store behind the same
// routes the server registers.
type harness struct {
	store     *memory.Store
	cache     *cache.MemoryProvider
	verifier  *auth.Verifier
	metrics   *observability.Metrics
	handlers  *Handlers
	router    *mux.Router
	userID    uuid.UUID
	addressID uuid.UUID
	product   models.Product
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	st := memory.New()
	userID := uuid.New()
	st.PutUser(models.UserSummary{ID: userID, Name: "Asha Rao", Email: "asha@example.com"})
	addressID := uuid.New()
	st.PutAddress(models.Address{ID: addressID, UserID: userID, Line1: "12 MG Road", City: "Pune", State: "MH", PostalCode: "411001", Country: "IN"})
	product := models.Product{ID: uuid.New(), Name: "Brass Lamp", PriceCents: 60000, Stock: 5, Active: true}
	st.PutProduct(product)

	cacheProvider, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("NewMemoryProvider() error = %v", err)
	}
	verifier, err := auth.NewVerifier(testJWTSecret, "")
	if err != nil {
		t.Fatalf("NewVerifier() error = %v", err)
	}

	metrics := observability.NewMetrics()
	effects := &services.SideEffects{Metrics: metrics, Logger: logger}
	gateway := stripe.NewGateway("", testWebhookSecret, nil)

	h, err := New(Dependencies{
		CheckoutService: services.NewCheckoutService(st, pricing.NewPricer(pricing.DefaultPolicy()), services.TimestampOrderNumbers{}, services.CODSettleAtOrder, false, effects, logger),
		OrderService:    services.NewOrderService(st, effects, logger),
		PaymentService:  services.NewPaymentService(st, nil, gateway, cacheProvider, effects, logger),
		Verifier:        verifier,
		CacheProvider:   cacheProvider,
		Metrics:         metrics,
		Logger:          logger,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.HandleFunc("/metrics", h.Metrics).Methods("GET").Name("metrics")
	r.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods("POST").Name("webhooks.stripe")
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RequireAuth)
	api.HandleFunc("/checkout", h.Checkout).Methods("POST").Name("api.checkout")
	api.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET").Name("api.orders.get")
	api.HandleFunc("/orders/{id}/cancel", h.CancelOrder).Methods("POST").Name("api.orders.cancel")
	api.HandleFunc("/orders/{id}/payment-intent", h.CreatePaymentIntent).Methods("POST").Name("api.orders.payment_intent")
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.RequireAdmin)
	admin.HandleFunc("/orders/{id}/status", h.AdminUpdateOrderStatus).Methods("POST").Name("api.admin.orders.status")

	hs := &harness{
		store:     st,
		cache:     cacheProvider,
		verifier:  verifier,
		metrics:   metrics,
		handlers:  h,
		router:    r,
		userID:    userID,
		addressID: addressID,
		product:   product,
	}
	hs.fillCart(1)
	return hs
}

func (hs *harness) fillCart(qty int) {
	hs.store.PutCart(models.Cart{UserID: hs.userID, Items: []models.CartItem{{Product: hs.product, Quantity: qty}}})
}

func (hs *harness) token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token, err := hs.verifier.Issue(userID, role, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}

type request struct {
	method  string
	path    string
	token   string
	body    string
	headers map[string]string
}

func (hs *harness) do(req request) *httptest.ResponseRecorder {
	var body io.Reader
	if req.body != "" {
		body = strings.NewReader(req.body)
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	hs.router.ServeHTTP(rec, r)
	return rec
}

func (hs *harness) checkoutBody(method string) string {
	return `{"address_id":"` + hs.addressID.String() + `","payment_method":"` + method + `"}`
}

// placeOrder checks out the seeded cart and returns the created order.
func (hs *harness) placeOrder(t *testing.T, method string) *models.Order {
	t.Helper()
	rec := hs.do(request{method: http.MethodPost, path: "/api/checkout", token: hs.token(t, hs.userID, ""), body: hs.checkoutBody(method)})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp checkoutResponse
	decode(t, rec, &resp)
	return resp.Order
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) errorResponse {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if resp.Success || resp.Code != code {
		t.Fatalf("error body = %+v, want code %s", resp, code)
	}
	return resp
}

func signedWebhook(t *testing.T, eventID, eventType, transactionID string) (string, string) {
	t.Helper()
	payload := `{"id":"` + eventID + `","object":"event","api_version":"2026-01-28.clover","type":"` + eventType + `","data":{"object":{"id":"` + transactionID + `","object":"payment_intent"}}}`
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return payload, signed.Header
}
