// Package metrics holds the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "spyagency"

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	reg prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	operations   *prometheus.CounterVec
	breedLookups *prometheus.CounterVec
	breakerState prometheus.Gauge
}

// New registers collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Metrics{
		reg: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"route", "method"}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Domain operations by name and outcome (ok, not_found, conflict, invalid, unavailable, error).",
		}, []string{"operation", "outcome"}),
		breedLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breed_lookups_total",
			Help:      "Breed vocabulary lookups by source (cache, remote) and result.",
		}, []string{"source", "result"}),
		breakerState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breed_breaker_state",
			Help:      "Breed lookup circuit breaker state: 0 closed, 1 open, 2 half-open.",
		}),
	}
}

func (m *Metrics) ObserveHTTP(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) Operation(name, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) BreedLookup(source, result string) {
	if m == nil {
		return
	}
	m.breedLookups.WithLabelValues(source, result).Inc()
}

func (m *Metrics) BreakerState(state int) {
	if m == nil {
		return
	}
	m.breakerState.Set(float64(state))
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
