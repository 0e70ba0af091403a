package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the study counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	assignments  *prometheus.CounterVec
	screenOuts   *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	gatewayCalls *prometheus.CounterVec
	gatewayTime  *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
}

// NewMetrics registers every collector on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csrlab",
			Name:      "assignments_total",
			Help:      "Participants assigned to a treatment arm.",
		}, []string{"treatment", "stratum"}),
		screenOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csrlab",
			Name:      "screen_outs_total",
			Help:      "Participants screened out because every arm was at quota.",
		}, []string{"stratum"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csrlab",
			Name:      "phase_transitions_total",
			Help:      "Session phase transitions.",
		}, []string{"from", "to"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csrlab",
			Name:      "gateway_calls_total",
			Help:      "Generative calls by capability and provenance.",
		}, []string{"capability", "provenance"}),
		gatewayTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "csrlab",
			Name:      "gateway_call_seconds",
			Help:      "Latency of generative backend calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"capability"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csrlab",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "status"}),
	}

	reg.MustRegister(
		m.assignments,
		m.screenOuts,
		m.transitions,
		m.gatewayCalls,
		m.gatewayTime,
		m.httpRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Assigned(treatment, stratum string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(treatment, stratum).Inc()
}

func (m *Metrics) ScreenedOut(stratum string) {
	if m == nil {
		return
	}
	m.screenOuts.WithLabelValues(stratum).Inc()
}

func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) GatewayCall(capability, provenance string) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(capability, provenance).Inc()
}

func (m *Metrics) ObserveGateway(capability string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayTime.WithLabelValues(capability).Observe(d.Seconds())
}

func (m *Metrics) HTTPRequest(method, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, status).Inc()
}
