// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "activity_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	// EventsAccepted counts events handed to the batcher, by path (track, middleware, bulk).
	EventsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_accepted_total",
			Help: "Events accepted for asynchronous persistence",
		},
		[]string{"source"},
	)

	// EventsRejected counts schema violations and duplicates.
	EventsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_rejected_total",
			Help: "Events rejected before persistence",
		},
		[]string{"source", "reason"},
	)

	// EventsDropped counts events lost after acceptance: full buffer or failed flush.
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_dropped_total",
			Help: "Accepted events that were never persisted",
		},
		[]string{"reason"},
	)

	EventsPersisted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "activity_events_persisted_total",
			Help: "Events written to the activity store",
		},
	)

	FlushDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "activity_batch_flush_duration_seconds",
			Help:    "Duration of batch flushes to the activity store",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	BufferDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "activity_buffer_depth",
			Help: "Events waiting in the ingest buffer",
		},
	)

	// BreakerState is 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "activity_store_breaker_state",
			Help: "Circuit breaker state of the store writer",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_published_total",
			Help: "Persisted events mirrored to the broker",
		},
		[]string{"result"},
	)

	EventsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "activity_events_deleted_total",
			Help: "Events removed by retention or purge",
		},
		[]string{"reason"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route string, status int, duration time.Duration) {
	RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// Middleware observes every request under its route template, so /user/42 and
// /user/43 share a series. Errors are rendered here so the recorded status is
// the one the client sees.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		RecordRequest(c.Method(), c.Route().Path, c.Response().StatusCode(), time.Since(start))
		return nil
	}
}

// Handler exposes the default registry.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
