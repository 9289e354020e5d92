// Package metrics holds the prometheus collectors of the search service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lingsearch"

type Metrics struct {
	registry *prometheus.Registry

	requests      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	indexOps      *prometheus.CounterVec
	docsIndexed   *prometheus.CounterVec
	searchLatency *prometheus.HistogramVec
	rateLimit     *prometheus.CounterVec
}

// New registers every collector on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		indexOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_operations_total",
			Help:      "Index and synonym map operations by result.",
		}, []string{"operation", "result"}),
		docsIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_indexed_total",
			Help:      "Documents accepted by index actions.",
		}, []string{"index"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search query latency.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"index"}),
		rateLimit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_total",
			Help:      "Rate limiter decisions.",
		}, []string{"route", "decision"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latency, m.indexOps, m.docsIndexed, m.searchLatency, m.rateLimit,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

// IndexOperation counts op as ok or error
func (m *Metrics) IndexOperation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.indexOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) DocumentsIndexed(index string, n int) {
	if n > 0 {
		m.docsIndexed.WithLabelValues(index).Add(float64(n))
	}
}

func (m *Metrics) ObserveSearch(index string, d time.Duration) {
	m.searchLatency.WithLabelValues(index).Observe(d.Seconds())
}

func (m *Metrics) OnAllow(route, key string) {
	m.rateLimit.WithLabelValues(route, "allow").Inc()
}

func (m *Metrics) OnDeny(route, key string) {
	m.rateLimit.WithLabelValues(route, "deny").Inc()
}
