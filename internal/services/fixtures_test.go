package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/email"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/events"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/models"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/pricing"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store/memory"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/stripe"
)

const testWebhookSecret = "whsec_services_test"

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingNotifier struct {
	mu        sync.Mutex
	templates []email.TemplateName
	err       error
}

func (n *recordingNotifier) NotifyOrder(_ context.Context, template email.TemplateName, _ *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.templates = append(n.templates, template)
	return n.err
}

type fakeGateway struct {
	mu      sync.Mutex
	created int
	intents map[string]*stripe.Intent
	err     error
}

func (g *fakeGateway) CreateIntent(_ context.Context, params stripe.IntentParams) (*stripe.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.created++
	if g.intents == nil {
		g.intents = make(map[string]*stripe.Intent)
	}
	id := "pi_" + uuid.NewString()[:8]
	intent := &stripe.Intent{ID: id, ClientSecret: id + "_secret", AmountCents: params.AmountCents, Currency: params.Currency}
	g.intents[id] = intent
	return intent, nil
}

func (g *fakeGateway) GetIntent(_ context.Context, id string) (*stripe.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[id]
	if !ok {
		return nil, errors.New("no such intent")
	}
	return intent, nil
}

// fixture is a seeded storefront: one customer with an address, a product
// catalog and a cart.
type fixture struct {
	store     *memory.Store
	user      models.UserSummary
	address   models.Address
	publisher *recordingPublisher
	notifier  *recordingNotifier
	gateway   *fakeGateway
	effects   *SideEffects
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := memory.New()
	user := models.UserSummary{ID: uuid.New(), Name: "Asha Rao", Email: "asha@example.com"}
	st.PutUser(user)
	address := models.Address{ID: uuid.New(), UserID: user.ID, Line1: "12 MG Road", City: "Pune", State: "MH", PostalCode: "411001", Country: "IN"}
	st.PutAddress(address)

	f := &fixture{
		store:     st,
		user:      user,
		address:   address,
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		gateway:   &fakeGateway{},
	}
	f.effects = &SideEffects{Publisher: f.publisher, Notifier: f.notifier, Logger: discardLogger()}
	return f
}

func (f *fixture) product(name string, priceCents int64, stock int) models.Product {
	p := models.Product{ID: uuid.New(), Name: name, PriceCents: priceCents, Stock: stock, Active: true}
	f.store.PutProduct(p)
	return p
}

func (f *fixture) stock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	p, err := f.store.GetProduct(context.Background(), productID)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	return p.Stock
}

func (f *fixture) fillCart(userID uuid.UUID, items ...models.CartItem) {
	f.store.PutCart(models.Cart{UserID: userID, Items: items})
}

func (f *fixture) checkoutService(settlement CODSettlement) *CheckoutService {
	return NewCheckoutService(f.store, pricing.NewPricer(pricing.DefaultPolicy()), nil, settlement, true, f.effects, discardLogger())
}

func (f *fixture) orderService() *OrderService {
	return NewOrderService(f.store, f.effects, discardLogger())
}

func (f *fixture) paymentService() *PaymentService {
	verifier := stripe.NewGateway("sk_test_unused", testWebhookSecret, nil)
	return NewPaymentService(f.store, f.gateway, verifier, nil, f.effects, discardLogger())
}

// placeOrder checks out a single line of qty units for the fixture user.
func (f *fixture) placeOrder(t *testing.T, method models.PaymentMethod, product models.Product, qty int) *models.Order {
	t.Helper()
	f.fillCart(f.user.ID, models.CartItem{Product: product, Quantity: qty})
	order, err := f.checkoutService(CODSettleAtOrder).Checkout(context.Background(), CheckoutInput{
		UserID:        f.user.ID,
		AddressID:     f.address.ID,
		PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("Checkout() error = %v", err)
	}
	return order
}

func signedEvent(t *testing.T, eventID, eventType, transactionID string) ([]byte, string) {
	t.Helper()
	payload := []byte(`{"id":"` + eventID + `","object":"event","api_version":"2026-01-28.clover","type":"` + eventType + `","data":{"object":{"id":"` + transactionID + `","object":"payment_intent"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return payload, signed.Header
}

func requireCode(t *testing.T, err error, want ErrorCode) *CheckoutError {
	t.Helper()
	var checkoutErr *CheckoutError
	if !errors.As(err, &checkoutErr) {
		t.Fatalf("error = %v, want CheckoutError %s", err, want)
	}
	if checkoutErr.Code != want {
		t.Fatalf("code = %s, want %s (%v)", checkoutErr.Code, want, err)
	}
	return checkoutErr
}

// failingStore injects a failure into one Tx method so rollback can be observed.
type failingStore struct {
	*memory.Store
	failDeleteCart error
}

func (s *failingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&failingTx{Tx: tx, failDeleteCart: s.failDeleteCart})
	})
}

type failingTx struct {
	store.Tx
	failDeleteCart error
}

func (t *failingTx) DeleteCartItems(ctx context.Context, cartID uuid.UUID) error {
	if t.failDeleteCart != nil {
		return t.failDeleteCart
	}
	return t.Tx.DeleteCartItems(ctx, cartID)
}
