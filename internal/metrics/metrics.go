// Package metrics exposes gateway request counters in Prometheus format.
package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps the counters and histograms the router reports into.
type Registry struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	registry *prometheus.Registry
}

// New creates and registers the gateway's Prometheus collectors.
func New() *Registry {
	reg := prometheus.NewRegistry()

	requests := promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Name: "keyhaven_relay_requests_total",
		Help: "Total relay requests by channel and status.",
	}, []string{"channel", "status"})

	latency := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "keyhaven_relay_latency_ms",
		Help:    "Relay latency in milliseconds by channel.",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
	}, []string{"channel"})

	return &Registry{requests: requests, latency: latency, registry: reg}
}

// Observe records one completed relay.
func (r *Registry) Observe(channel string, status int, latency time.Duration) {
	r.requests.WithLabelValues(channel, statusLabel(status)).Inc()
	r.latency.WithLabelValues(channel).Observe(float64(latency.Milliseconds()))
}

func statusLabel(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "success"
	case status >= 400 && status < 500:
		return "client_error"
	default:
		return "server_error"
	}
}

// Handler returns the gin handler for GET /metrics.
func (r *Registry) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
