package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gym_assistant"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	collectionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "operations_total",
			Help:      "Collection client operations by outcome.",
		},
		[]string{"collection", "operation", "outcome"},
	)

	collectionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "operation_duration_seconds",
			Help:      "Duration of collection client operations.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"collection", "operation"},
	)

	activeSubscriptions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collection",
			Name:      "active_subscriptions",
			Help:      "Live subscriptions per collection.",
		},
		[]string{"collection"},
	)

	authOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Session operations by result code.",
		},
		[]string{"operation", "code"},
	)

	navigationDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "navigation",
			Name:      "decisions_total",
			Help:      "Guard decisions by route and outcome.",
		},
		[]string{"route", "outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		collectionOps,
		collectionDuration,
		activeSubscriptions,
		authOps,
		navigationDecisions,
		httpRequests,
		httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCollectionOp records one completed collection operation.
func RecordCollectionOp(collection, operation string, ok bool, started time.Time) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	collectionOps.WithLabelValues(collection, operation, outcome).Inc()
	collectionDuration.WithLabelValues(collection, operation).Observe(time.Since(started).Seconds())
}

// SubscriptionOpened increments the live subscription gauge.
func SubscriptionOpened(collection string) {
	activeSubscriptions.WithLabelValues(collection).Inc()
}

// SubscriptionClosed decrements the live subscription gauge.
func SubscriptionClosed(collection string) {
	activeSubscriptions.WithLabelValues(collection).Dec()
}

// RecordAuthOp records a session operation; code is empty on success.
func RecordAuthOp(operation, code string) {
	if code == "" {
		code = "ok"
	}
	authOps.WithLabelValues(operation, code).Inc()
}

// RecordNavigation records a guard decision for route.
func RecordNavigation(route, outcome string) {
	navigationDecisions.WithLabelValues(route, outcome).Inc()
}

// FiberMiddleware records request count and latency per matched route.
func FiberMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/metrics" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		route := c.Route().Path
		method := c.Method()
		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}
