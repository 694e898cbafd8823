// Package metrics exposes Prometheus counters for the Nexus gateway.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's Prometheus collectors. All counters are
// registered on a private registry so tests can create instances freely.
type Metrics struct {
	registry *prometheus.Registry

	Validations  *prometheus.CounterVec
	FeedRequests *prometheus.CounterVec
	Downloads    *prometheus.CounterVec
}

// New creates and registers the gateway's collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_license_validations_total",
			Help: "License validations by outcome code (ok or the error code).",
		}, []string{"outcome"}),
		FeedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_feed_requests_total",
			Help: "Update feed requests by tuple and HTTP status.",
		}, []string{"channel", "platform", "arch", "status"}),
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_downloads_total",
			Help: "Artifact downloads by source and HTTP status.",
		}, []string{"source", "status"}),
	}
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
