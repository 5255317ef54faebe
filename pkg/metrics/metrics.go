// Package metrics defines the Prometheus collectors used by the post search
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
	HTTPRequestsInFlight    prometheus.Gauge
	SearchQueriesTotal      *prometheus.CounterVec
	SearchLatency           *prometheus.HistogramVec
	SearchResultsCount      prometheus.Histogram
	EngineOperationDuration *prometheus.HistogramVec
	DocsIndexedTotal        prometheus.Counter
	DocsRejectedTotal       *prometheus.CounterVec
	IndexedPosts            prometheus.Gauge
	IndexedWords            prometheus.Gauge
	IndexedKeywords         prometheus.Gauge
	CacheHitsTotal          prometheus.Counter
	CacheMissesTotal        prometheus.Counter
	IngestEventsTotal       *prometheus.CounterVec
	CircuitBreakerState     *prometheus.GaugeVec

	registerer prometheus.Registerer
}

// New creates all collectors and registers them with reg. A nil reg uses the
// process-wide default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "End-to-end search latency in seconds by cache status.",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
			[]string{"cache_status"},
		),
		SearchResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_results_count",
				Help:    "Number of results returned per search query.",
				Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
			},
		),
		EngineOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "engine_operation_duration_seconds",
				Help:    "In-memory engine operation latency in seconds.",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
			[]string{"operation"},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "docs_indexed_total",
				Help: "Total posts added to the in-memory index.",
			},
		),
		DocsRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docs_rejected_total",
				Help: "Post payloads rejected at validation, by source.",
			},
			[]string{"source"},
		),
		IndexedPosts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_posts",
				Help: "Number of posts in the document store.",
			},
		),
		IndexedWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_words",
				Help: "Number of distinct terms in the word index.",
			},
		),
		IndexedKeywords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_keywords",
				Help: "Number of distinct keywords in the keyword index.",
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of query cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of query cache misses.",
			},
		),
		IngestEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_events_total",
				Help: "Post ingest events by stage (published, indexed, dropped).",
			},
			[]string{"stage"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
		registerer: reg,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.EngineOperationDuration,
		m.DocsIndexedTotal,
		m.DocsRejectedTotal,
		m.IndexedPosts,
		m.IndexedWords,
		m.IndexedKeywords,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IngestEventsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// RegisterNormalizerCache exposes the engine's normalisation cache counters.
// stats is called at scrape time and must be safe for concurrent use.
func (m *Metrics) RegisterNormalizerCache(stats func() (hits, misses int64, size int)) error {
	hits := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "normalizer_cache_hits_total",
			Help: "Total normalisation cache hits.",
		},
		func() float64 {
			h, _, _ := stats()
			return float64(h)
		},
	)
	misses := prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name: "normalizer_cache_misses_total",
			Help: "Total normalisation cache misses.",
		},
		func() float64 {
			_, mi, _ := stats()
			return float64(mi)
		},
	)
	size := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "normalizer_cache_entries",
			Help: "Current number of normalisation cache entries.",
		},
		func() float64 {
			_, _, s := stats()
			return float64(s)
		},
	)
	for _, c := range []prometheus.Collector{hits, misses, size} {
		if err := m.registerer.Register(c); err != nil {
			return fmt.Errorf("registering normalizer cache metrics: %w", err)
		}
	}
	return nil
}

// Handler returns the Prometheus scrape HTTP handler for the default
// registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns a scrape handler for a specific gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
