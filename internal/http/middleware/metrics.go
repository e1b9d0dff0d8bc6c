// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. The Metrics()
// middleware measures request counts, latencies, in-flight concurrency, and
// response sizes with careful attention to label cardinality:
//
//   - method:   HTTP method verb (GET/POST/…)
//   - path:     the registered Gin route (e.g. /api/apartments/:id);
//     falls back to the raw URL path when no route matched
//   - status:   numeric status code as a string (e.g. "200", "404")
//
// The chosen labels keep cardinality bounded while remaining actionable in
// dashboards and SLOs. All collectors are safe for concurrent use.
//
// Domain series live here as well: webhook gate rejections by gate and code,
// apartment writes by operation, and event-stream connection lifetimes. The
// subscriber count is exported by the broadcast hub.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	// We intentionally omit status to keep latency histogram cardinality lower.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets, // suitable for general HTTP latency
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges the number of in-flight (currently processing) requests.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// httpRespSize captures response sizes in bytes by method and route path.
	// Buckets are tuned for typical JSON API payload sizes.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10, // 200B..5KiB
				10 << 10, 25 << 10, 50 << 10, // 10..50KiB
				100 << 10, 250 << 10, 500 << 10, // 100..500KiB
				1 << 20, 2 << 20, 5 << 20, // 1..5MiB
			},
		},
		[]string{"method", "path"},
	)

	// gateRejections counts webhook requests refused by a gate.
	gateRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_rejections_total",
			Help: "Webhook requests rejected by an admission gate.",
		},
		[]string{"gate", "code"},
	)

	// apartmentWrites counts successful store mutations by operation
	// (upsert, delete, delete_all).
	apartmentWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apartment_writes_total",
			Help: "Successful apartment store mutations.",
		},
		[]string{"op"},
	)

	// streamDuration records how long event-stream connections stay open.
	streamDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sse_connection_duration_seconds",
			Help:    "Lifetime of event-stream connections in seconds.",
			Buckets: []float64{1, 10, 30, 60, 300, 900, 3600, 4 * 3600},
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize,
		gateRejections, apartmentWrites, streamDuration)
}

// CountWrite increments apartment_writes_total for op.
func CountWrite(op string) {
	apartmentWrites.WithLabelValues(op).Inc()
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
//
// Usage:
//
//	r := gin.New()
//	r.Use(middleware.Metrics("/api/stream"))
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
// Semantics:
//   - Increments http_requests_total(method, path, status) per request
//   - Observes http_request_duration_seconds(method, path) on completion
//   - Tracks http_requests_inflight gauge during handler execution
//   - Observes http_response_size_bytes(method, path) with bytes written
//
// Requests to a longLived path (the event stream) are still counted, but
// their lifetime goes to sse_connection_duration_seconds and they are kept
// out of the latency, size and in-flight series, which they would swamp.
//
// The "path" label uses the registered route (c.FullPath()) to avoid
// unbounded label cardinality from raw URLs. If no route matched (e.g. 404),
// it falls back to c.Request.URL.Path.
func Metrics(longLived ...string) gin.HandlerFunc {
	streams := make(map[string]struct{}, len(longLived))
	for _, p := range longLived {
		streams[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		_, stream := streams[c.Request.URL.Path]
		if !stream {
			httpInflight.Inc()
			defer httpInflight.Dec()
		}

		c.Next()

		dur := time.Since(start).Seconds()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		if stream {
			streamDuration.Observe(dur)
			return
		}
		httpLat.WithLabelValues(method, path).Observe(dur)
		// Size is -1 when nothing was written; skip it.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
