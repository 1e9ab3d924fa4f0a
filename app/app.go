package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/auth"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/cache"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/config"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/db"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/email"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/events"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/handlers"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/logging"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/observability"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/pricing"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/services"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/store/memory"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/stripe"
)

const outboundHTTPTimeout = 20 * time.Second

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	Store         store.Store
	CacheProvider cache.Provider
	Publisher     events.Publisher
	Metrics       *observability.Metrics
	Handlers      *handlers.Handlers

	flushSentry func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	flushSentry, err := observability.InitSentry(observability.SentryConfig{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		TracesSampleRate: cfg.SentrySampleRate,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:      cfg,
		Logger:      logger,
		Metrics:     observability.NewMetrics(),
		flushSentry: flushSentry,
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	if err := a.openStore(startupCtx); err != nil {
		a.Close()
		return nil, err
	}

	policy, err := pricingPolicy(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.CacheProvider, err = cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger.With("component", "event_publisher"))
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Publisher = publisher
	} else {
		logger.Info("KAFKA_BROKERS not set, order events are not published")
		a.Publisher = events.NoopPublisher{}
	}

	httpClient := observability.NewHTTPClient(outboundHTTPTimeout)

	renderer, err := email.NewRenderer()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load email templates: %w", err)
	}
	emailProvider := email.NewProvider(email.Config{
		APIKey:     cfg.ResendAPIKey,
		From:       cfg.EmailFrom,
		HTTPClient: httpClient,
	}, logger.With("component", "email"))

	effects := &services.SideEffects{
		Publisher: a.Publisher,
		Notifier:  services.NewEmailNotifier(emailProvider, renderer, cfg.StoreName),
		Metrics:   a.Metrics,
		Logger:    logger.With("component", "side_effects"),
	}

	gateway := stripe.NewGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, httpClient)
	var paymentGateway services.PaymentGateway
	if cfg.PaymentsEnabled() {
		paymentGateway = gateway
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, gateway payment methods are disabled")
	}

	codSettlement := services.CODSettlement(cfg.CODSettlement)
	checkoutService := services.NewCheckoutService(
		a.Store,
		pricing.NewPricer(policy),
		services.TimestampOrderNumbers{},
		codSettlement,
		cfg.PaymentsEnabled(),
		effects,
		logger.With("component", "checkout_service"),
	)
	orderService := services.NewOrderService(a.Store, effects, logger.With("component", "order_service"))
	paymentService := services.NewPaymentService(
		a.Store,
		paymentGateway,
		gateway,
		a.CacheProvider,
		effects,
		logger.With("component", "payment_service"),
	)

	verifier, err := auth.NewVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	deps := handlers.Dependencies{
		CheckoutService: checkoutService,
		OrderService:    orderService,
		PaymentService:  paymentService,
		Verifier:        verifier,
		CacheProvider:   a.CacheProvider,
		Metrics:         a.Metrics,
		Logger:          logger,
	}
	if pg, ok := a.Store.(*db.Store); ok {
		deps.Database = pg
	}
	a.Handlers, err = handlers.New(deps)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	logger.Info("storefront initialized",
		"database", cfg.DatabaseProvider,
		"cache", cfg.CacheProvider,
		"cod_settlement", codSettlement,
		"currency", policy.Currency,
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	if a.Config.DatabaseProvider == "memory" {
		a.Logger.Warn("using in-memory store, data is lost on restart")
		a.Store = memory.New()
		return nil
	}

	pool, err := db.Connect(ctx, a.Config.DatabaseURL, a.Logger.With("component", "db"))
	if err != nil {
		return err
	}
	a.DB = pool

	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	if applied > 0 {
		a.Logger.Info("database migrations applied", "count", applied)
	}

	a.Store = db.NewStore(pool)
	return nil
}

// pricingPolicy starts from the environment values and overlays the optional
// policy file.
func pricingPolicy(cfg *config.Config) (pricing.Policy, error) {
	policy := pricing.Policy{
		TaxRateBPS:                 cfg.TaxRateBPS,
		FreeShippingThresholdCents: cfg.FreeShippingThresholdCents,
		FlatShippingCents:          cfg.FlatShippingCents,
		Currency:                   cfg.Currency,
	}
	if cfg.PricingPolicyFile != "" {
		loaded, err := pricing.LoadPolicyFile(cfg.PricingPolicyFile, policy)
		if err != nil {
			return pricing.Policy{}, err
		}
		policy = loaded
	}
	if err := policy.Validate(); err != nil {
		return pricing.Policy{}, err
	}
	return policy, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil && a.Logger != nil {
			a.Logger.Warn("failed to close event publisher", "error", err)
		}
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.flushSentry != nil {
		a.flushSentry()
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
