package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/config"
	"github.com/shivam-9090/EXOVITA-ECOMMERCE-sub000/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.HandleFunc("/metrics", h.Metrics).Methods("GET").Name("metrics")
	r.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods("POST").Name("webhooks.stripe")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"code":"NOT_FOUND","message":"route not found"}`))
	})

	// Customer routes, scoped to the user in the bearer token
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RequireAuth)
	api.HandleFunc("/checkout", h.Checkout).Methods("POST").Name("api.checkout")
	api.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET").Name("api.orders.get")
	api.HandleFunc("/orders/{id}/cancel", h.CancelOrder).Methods("POST").Name("api.orders.cancel")
	api.HandleFunc("/orders/{id}/payment-intent", h.CreatePaymentIntent).Methods("POST").Name("api.orders.payment_intent")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(h.RequireAdmin)
	admin.HandleFunc("/orders/{id}/status", h.AdminUpdateOrderStatus).Methods("POST").Name("api.admin.orders.status")

	return r
}
