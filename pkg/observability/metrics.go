package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Payment gateway metrics
	GatewayCallsTotal   *prometheus.CounterVec
	GatewayCallDuration *prometheus.HistogramVec

	// Provisioning metrics
	OrgsProvisionedTotal    prometheus.Counter
	ProvisioningRacesTotal  prometheus.Counter
	ProvisioningErrorsTotal prometheus.Counter

	// Subscription lifecycle metrics
	SubscriptionTransitionsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgbilling_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgbilling_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		GatewayCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgbilling_gateway_calls_total",
				Help: "Total number of payment gateway calls",
			},
			[]string{"operation", "outcome"},
		),
		GatewayCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "orgbilling_gateway_call_duration_seconds",
				Help:    "Payment gateway call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		OrgsProvisionedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orgbilling_orgs_provisioned_total",
				Help: "Organizations created by the provisioner",
			},
		),
		ProvisioningRacesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orgbilling_provisioning_races_total",
				Help: "Duplicate-name races resolved by alias lookup",
			},
		),
		ProvisioningErrorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "orgbilling_provisioning_errors_total",
				Help: "Provisioning failures swallowed during user creation",
			},
		),
		SubscriptionTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orgbilling_subscription_transitions_total",
				Help: "Subscription state transitions by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GatewayCallsTotal,
		m.GatewayCallDuration,
		m.OrgsProvisionedTotal,
		m.ProvisioningRacesTotal,
		m.ProvisioningErrorsTotal,
		m.SubscriptionTransitionsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape handler for this registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGatewayCall records one payment gateway call
func (m *Metrics) ObserveGatewayCall(operation string, err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.GatewayCallsTotal.WithLabelValues(operation, outcome).Inc()
	m.GatewayCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// statusRecorder captures the response status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware instruments an HTTP handler with request metrics. The
// path label uses the route template registered with the router, not the
// raw URL, to keep cardinality bounded.
func (m *Metrics) HTTPMiddleware(routeTemplate func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			path := routeTemplate(r)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rec.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}
