// Package metrics exposes prometheus collectors for upstream traffic and
// attorney lookups. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "directory"

// Upstream call outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeStatus      = "bad_status"
	OutcomeNetworkFail = "network_error"
	OutcomeTooLarge    = "body_too_large"
)

// Metrics holds the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	lookups          *prometheus.CounterVec
	degraded         *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		upstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_resolutions_total",
			Help:      "Attorney lookups by the candidate strategy that resolved them (none when not found).",
		}, []string{"strategy"}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_responses_total",
			Help:      "Responses replaced by an empty result because upstream failed.",
		}, []string{"route"}),
	}
	m.registry.MustRegister(m.upstreamRequests, m.upstreamDuration, m.lookups, m.degraded)
	return m
}

// ObserveUpstream records one upstream call.
func (m *Metrics) ObserveUpstream(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	m.upstreamDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveLookup records which strategy resolved a lookup.
func (m *Metrics) ObserveLookup(strategy string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(strategy).Inc()
}

// ObserveDegraded records an empty fallback response for a route.
func (m *Metrics) ObserveDegraded(route string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(route).Inc()
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
