package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared by the proxy and the client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Forwarded requests by rule segment, method and relayed status
	ForwardedRequests *prometheus.CounterVec

	// Upstream round-trip latency by segment
	UpstreamLatency *prometheus.HistogramVec

	// Synthetic 502 responses written because the forward failed
	BadGateway *prometheus.CounterVec

	// Normalized client-side failures by kind
	ClientErrors *prometheus.CounterVec
}

// New registers all gateway metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all gateway metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ForwardedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "teamhub_proxy_requests_total",
			Help: "Requests forwarded to the upstream API by segment, method and status",
		}, []string{"segment", "method", "status"}),

		UpstreamLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "teamhub_proxy_upstream_duration_seconds",
			Help:    "Upstream round-trip duration by segment",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"segment"}),

		BadGateway: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "teamhub_proxy_bad_gateway_total",
			Help: "Synthetic 502 responses by segment",
		}, []string{"segment"}),

		ClientErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "teamhub_client_errors_total",
			Help: "Normalized gateway client failures by kind",
		}, []string{"kind"}),
	}
}

// ObserveForward records one relayed upstream response.
func (m *Metrics) ObserveForward(segment, method string, status int, d time.Duration) {
	if m != nil {
		m.ForwardedRequests.WithLabelValues(segment, method, strconv.Itoa(status)).Inc()
		m.UpstreamLatency.WithLabelValues(segment).Observe(d.Seconds())
	}
}

// IncrementBadGateway records a synthetic 502.
func (m *Metrics) IncrementBadGateway(segment string) {
	if m != nil {
		m.BadGateway.WithLabelValues(segment).Inc()
	}
}

// IncrementClientError records a normalized failure surfaced to a caller.
func (m *Metrics) IncrementClientError(kind string) {
	if m != nil {
		m.ClientErrors.WithLabelValues(kind).Inc()
	}
}
