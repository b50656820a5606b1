// Package metrics exposes the gateway's Prometheus collectors.
//
// Each process keeps its own isolated registry so the gateway can be
// embedded next to other services without metric name collisions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registry plus the gateway's built-in collectors.
type Metrics struct {
	Registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	searchHits      prometheus.Histogram
	stageFailures   *prometheus.CounterVec
}

// New creates a registry with the standard Go and process collectors
// and the gateway's request/search metrics, all labeled with the
// service name.
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	wrapped := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": serviceName},
		registry,
	)

	m := &Metrics{
		Registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of handled HTTP requests",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		searchHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "search_hits",
			Help:    "Number of hits returned per search request",
			Buckets: []float64{0, 1, 3, 5, 10, 20, 30},
		}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "search_stage_failures_total",
			Help: "Search pipeline failures by stage (embed, connect, search)",
		}, []string{"stage"}),
	}

	wrapped.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.searchHits,
		m.stageFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest records one handled request.
func (m *Metrics) ObserveRequest(route, status string, start time.Time) {
	m.requestsTotal.WithLabelValues(route, status).Inc()
	m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

// ObserveHits records the hit count of a successful search.
func (m *Metrics) ObserveHits(n int) {
	m.searchHits.Observe(float64(n))
}

// IncFailure counts a pipeline failure for the given stage.
func (m *Metrics) IncFailure(stage string) {
	m.stageFailures.WithLabelValues(stage).Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
