package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors scraped from /metrics. Each instance
// owns its registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	checkouts         *prometheus.CounterVec
	webhookEvents     *prometheus.CounterVec
	cancellations     *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	sideEffectErrors  *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Checkout attempts by outcome and payment method",
		}, []string{"outcome", "payment_method"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_payment_webhook_events_total",
			Help: "Payment gateway webhook events by type and outcome",
		}, []string{"event_type", "outcome"}),
		cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_cancellations_total",
			Help: "Order cancellation attempts by outcome",
		}, []string{"outcome"}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Applied order status transitions",
		}, []string{"from", "to"}),
		sideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_side_effect_failures_total",
			Help: "Best-effort post-commit actions that failed",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.checkouts,
		m.webhookEvents,
		m.cancellations,
		m.statusTransitions,
		m.sideEffectErrors,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Checkout(outcome, paymentMethod string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome, paymentMethod).Inc()
}

func (m *Metrics) WebhookEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, outcome).Inc()
}

func (m *Metrics) Cancellation(outcome string) {
	if m == nil {
		return
	}
	m.cancellations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) StatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) SideEffectFailure(kind string) {
	if m == nil {
		return
	}
	m.sideEffectErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) HTTPRequest(method, route, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(seconds)
}
