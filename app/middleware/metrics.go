package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total HTTP requests partitioned by method, route, and status code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evercare",
			Subsystem: "notifications",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration in seconds partitioned by method, route, and status code
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "evercare",
			Subsystem: "notifications",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latencies in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// In-flight HTTP requests
	httpInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "evercare",
			Subsystem: "notifications",
			Name:      "http_inflight_requests",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Voice webhook callbacks partitioned by endpoint. Tracked separately from
	// the generic HTTP counters because the provider retries on its own
	// schedule and a callback spike is an operational signal of its own.
	webhookCallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "evercare",
			Subsystem: "notifications",
			Name:      "webhook_callbacks_total",
			Help:      "Total number of provider webhook callbacks received",
		},
		[]string{"route"},
	)
)

// Metrics returns a Fiber v3 middleware that records request metrics. Labels
// use the matched route template, not the raw path, to keep cardinality low.
func Metrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}

		labels := prometheus.Labels{
			"method": c.Method(),
			"route":  route,
			"status": strconv.Itoa(c.Response().StatusCode()),
		}
		httpRequestsTotal.With(labels).Inc()
		httpRequestDuration.With(labels).Observe(time.Since(start).Seconds())

		return err
	}
}

// WebhookMetrics counts provider callbacks on the webhook group
func WebhookMetrics() fiber.Handler {
	return func(c fiber.Ctx) error {
		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		webhookCallbacksTotal.WithLabelValues(route).Inc()
		return c.Next()
	}
}
