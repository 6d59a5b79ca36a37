// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated counts successful order creations.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quickbite_orders_created_total",
		Help: "Number of orders created.",
	})

	// WebhookEvents counts gateway events by type and outcome
	// (applied, noop, ignored, rejected).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickbite_webhook_events_total",
		Help: "Number of payment gateway events processed.",
	}, []string{"type", "outcome"})

	// PickupScans counts staff pickup scans by outcome.
	PickupScans = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickbite_pickup_scans_total",
		Help: "Number of pickup scans.",
	}, []string{"outcome"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quickbite_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// HTTPMiddleware records request latency per route.
func HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Observe(time.Since(start).Seconds())
	}
}
