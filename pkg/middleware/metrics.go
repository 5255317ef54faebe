package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
)

// Metrics returns middleware that records request count, latency and the
// in-flight gauge per route.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)

			m.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(sw.status),
			).Inc()

			m.HTTPRequestDuration.WithLabelValues(
				r.Method,
				path,
			).Observe(duration)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (sw *statusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

const (
	tagsPrefix = "/api/v1/tags/"
	otherRoute = "other"
)

// routes lists the fixed paths served by the search and analytics services.
var routes = map[string]bool{
	"/api/v1/search":            true,
	"/api/v1/stats":             true,
	"/api/v1/posts":             true,
	"/api/v1/cache/stats":       true,
	"/api/v1/cache/invalidate":  true,
	"/api/v1/analytics":         true,
	"/api/v1/analytics/history": true,
	"/health/live":              true,
	"/health/ready":             true,
	"/metrics":                  true,
}

// normalizePath maps a request path to its route label. Tag lookups share one
// label and unknown paths collapse to "other", so scanners probing random
// URLs cannot grow the label set.
func normalizePath(path string) string {
	if strings.HasPrefix(path, tagsPrefix) && len(path) > len(tagsPrefix) {
		return tagsPrefix + "{tag}"
	}
	if routes[path] {
		return path
	}
	return otherRoute
}
