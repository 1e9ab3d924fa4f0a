package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/auth"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/cache"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/logging"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/observability"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/services"
)

const (
	maxWebhookBodyBytes = 1 << 20 // 1 MB
	maxRequestBodyBytes = 64 << 10
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers provides the storefront order API.
type Handlers struct {
	checkout      *services.CheckoutService
	orders        *services.OrderService
	payments      *services.PaymentService
	verifier      *auth.Verifier
	cacheProvider cache.Provider
	metrics       *observability.Metrics
	database      Pinger
	validate      *validator.Validate
	logger        *slog.Logger
}

type Dependencies struct {
	CheckoutService *services.CheckoutService
	OrderService    *services.OrderService
	PaymentService  *services.PaymentService
	Verifier        *auth.Verifier
	CacheProvider   cache.Provider
	Metrics         *observability.Metrics
	// Database is optional; without it the health check only reports the process.
	Database Pinger
	Logger   *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.OrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: orderService is required")
	}
	if deps.PaymentService == nil {
		return nil, fmt.Errorf("handlers dependencies: paymentService is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("handlers dependencies: verifier is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}

	return &Handlers{
		checkout:      deps.CheckoutService,
		orders:        deps.OrderService,
		payments:      deps.PaymentService,
		verifier:      deps.Verifier,
		cacheProvider: deps.CacheProvider,
		metrics:       deps.Metrics,
		database:      deps.Database,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if h.database != nil {
		if err := h.database.Ping(ctx); err != nil {
			logger.Error("database health check failed", "error", err)
			http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

// Metrics serves the Prometheus scrape endpoint.
func (h *Handlers) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.metrics == nil {
		http.NotFound(w, r)
		return
	}
	h.metrics.Handler().ServeHTTP(w, r)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}
