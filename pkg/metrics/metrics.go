package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the storefront service
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPLatencyMS    *prometheus.HistogramVec
	Webhooks         *prometheus.CounterVec
	Captures         *prometheus.CounterVec
	Refunds          *prometheus.CounterVec
	OrdersTerminated prometheus.Counter
}

// New registers and returns the service metrics
func New(service string) *Metrics {
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "gateway_webhooks_total",
		Help:      "Gateway callbacks processed, by outcome.",
	}, []string{"result"})
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "payment_captures_total",
		Help:      "Payment capture attempts, by outcome.",
	}, []string{"result"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "payment_refunds_total",
		Help:      "Payment refund attempts, by outcome.",
	}, []string{"result"})
	terminated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: service,
		Name:      "orders_terminated_total",
		Help:      "Abandoned orders terminated by the reaper.",
	})

	prometheus.MustRegister(httpRequests, httpLatency, webhooks, captures, refunds, terminated)
	return &Metrics{
		HTTPRequests:     httpRequests,
		HTTPLatencyMS:    httpLatency,
		Webhooks:         webhooks,
		Captures:         captures,
		Refunds:          refunds,
		OrdersTerminated: terminated,
	}
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
