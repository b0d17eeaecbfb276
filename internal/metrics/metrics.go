// Package metrics exposes Prometheus collectors for the messaging backend.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	MessagesCreated prometheus.Counter
	MessagesDropped prometheus.Counter
	EventListeners  prometheus.Gauge
	LoginsRejected  prometheus.Counter

	registry *prometheus.Registry
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chathub_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chathub_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		MessagesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "chathub_messages_created_total",
			Help: "Messages accepted into channels.",
		}),
		MessagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "chathub_event_signals_dropped_total",
			Help: "Event signals dropped because a listener was too slow.",
		}),
		EventListeners: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chathub_event_listeners",
			Help: "Currently connected event stream listeners.",
		}),
		LoginsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "chathub_logins_rejected_total",
			Help: "Logins rejected by the rate limiter.",
		}),
		registry: reg,
	}
}

// Handler serves the scrape endpoint for this registry.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
