package observability

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"handswers-backend/application/ports"
)

// Collector holds the Prometheus metrics served on /metrics. Each
// collector owns its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	business *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		business: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "business_events_total",
				Help:      "Business events such as rooms created and items swept",
			},
			[]string{"name"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of tutor replies and cascades",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
	}
	c.registry.MustRegister(c.HTTPRequests, c.HTTPDuration, c.business, c.latency)
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) RecordBusinessMetric(_ context.Context, name string, value float64, _ map[string]string) {
	if value < 0 {
		return
	}
	c.business.WithLabelValues(name).Add(value)
}

func (c *Collector) RecordLatency(_ context.Context, operation string, d time.Duration) {
	c.latency.WithLabelValues(operation).Observe(d.Seconds())
}

var _ ports.BusinessMetrics = (*Collector)(nil)
