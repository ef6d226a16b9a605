package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricHTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contour",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, path, and status class.",
	}, []string{"method", "path", "status"})

	metricHTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "contour",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and path.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// WithMetrics instruments requests with prometheus counters and latency
// histograms. Paths are a small fixed set, so label cardinality stays low.
func WithMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}

		timer := prometheus.NewTimer(metricHTTPDuration.WithLabelValues(r.Method, r.URL.Path))
		next.ServeHTTP(lrw, r)
		timer.ObserveDuration()

		metricHTTPRequests.WithLabelValues(r.Method, r.URL.Path, statusClass(lrw.status)).Inc()
	})
}

// MetricsHandler serves the prometheus exposition endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
