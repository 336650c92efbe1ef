// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. Metrics()
// records request counts, latencies, in-flight concurrency and response
// sizes, labelled by:
//
//   - method: HTTP method verb
//   - path:   the registered Gin route (e.g. /api/items/:id/approve), or
//     "unmatched" when no route matched, so probing clients cannot grow
//     the label set
//   - status: numeric status code as a string
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedPath labels requests that hit no registered route.
const unmatchedPath = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smm_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// Status is left off the histograms to keep their cardinality low.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "smm_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smm_http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "smm_http_response_size_bytes",
			Help: "Size of HTTP responses in bytes.",
			Buckets: []float64{
				200, 500, 1 << 10, 2 << 10, 5 << 10,
				10 << 10, 25 << 10, 50 << 10,
				100 << 10, 250 << 10, 500 << 10,
				1 << 20,
			},
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// Requests to any of the skip paths (typically the scrape endpoint itself)
// are passed through without being recorded.
//
//	r.Use(middleware.Metrics("/metrics"))
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		method := c.Request.Method

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}
