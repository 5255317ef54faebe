// Package loadtest drives concurrent search traffic against a running
// searcher and reports throughput, latency percentiles and cache hit rate.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/randutil"
)

// DefaultQueries is a mix of single- and multi-term blog searches.
var DefaultQueries = []string{
	"rust",
	"go concurrency",
	"distributed systems",
	"search engine",
	"memory safety",
	"nixos flakes",
	"inverted index",
	"channels",
	"garbage collector",
	"reproducible builds",
}

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	// RPS caps the total request rate across workers. 0 means unlimited.
	RPS     float64
	Limit   int
	Queries []string
	Client  *http.Client
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func newStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 10000),
		statusCodes: make(map[int]int64),
	}
}

func (s *Stats) record(duration time.Duration, statusCode int, cacheHit bool, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, duration)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

// Report summarizes a finished run. Latencies are sorted ascending.
type Report struct {
	Total       int64
	Success     int64
	Errors      int64
	CacheHits   int64
	Elapsed     time.Duration
	Latencies   []time.Duration
	StatusCodes map[int]int64
}

// Run sends searches until cfg.Duration elapses or ctx is cancelled. Each
// worker walks the query list in its own shuffled order.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.Concurrency < 1 {
		return nil, errors.New("concurrency must be positive")
	}
	if len(cfg.Queries) == 0 {
		cfg.Queries = DefaultQueries
	}
	if cfg.Limit < 1 {
		cfg.Limit = 10
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        cfg.Concurrency * 2,
				MaxIdleConnsPerHost: cfg.Concurrency * 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	stats := newStats()
	start := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order := randutil.ShuffleIndices(len(cfg.Queries))
			for i := 0; ; i++ {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				query := cfg.Queries[order[i%len(order)]]
				searchURL := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d",
					cfg.BaseURL, url.QueryEscape(query), cfg.Limit)

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
				if err != nil {
					stats.record(0, 0, false, err)
					return
				}
				reqStart := time.Now()
				resp, err := client.Do(req)
				duration := time.Since(reqStart)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					stats.record(duration, 0, false, err)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(duration, resp.StatusCode, resp.Header.Get("X-Cache") == "hit", nil)
			}
		}()
	}
	wg.Wait()

	stats.mu.Lock()
	defer stats.mu.Unlock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	codes := make(map[int]int64, len(stats.statusCodes))
	for code, n := range stats.statusCodes {
		codes[code] = n
	}

	return &Report{
		Total:       stats.totalRequests.Load(),
		Success:     stats.successCount.Load(),
		Errors:      stats.errorCount.Load(),
		CacheHits:   stats.cacheHits.Load(),
		Elapsed:     time.Since(start),
		Latencies:   latencies,
		StatusCodes: codes,
	}, nil
}

func (r *Report) RequestsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Total) / r.Elapsed.Seconds()
}

// Percentile uses the nearest-rank method.
func (r *Report) Percentile(p float64) time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(r.Latencies)))) - 1
	idx = max(0, min(idx, len(r.Latencies)-1))
	return r.Latencies[idx]
}

func (r *Report) Mean() time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, l := range r.Latencies {
		sum += l
	}
	return sum / time.Duration(len(r.Latencies))
}

func (r *Report) StdDev() time.Duration {
	if len(r.Latencies) == 0 {
		return 0
	}
	mean := float64(r.Mean())
	var sumSquared float64
	for _, l := range r.Latencies {
		diff := float64(l) - mean
		sumSquared += diff * diff
	}
	return time.Duration(math.Sqrt(sumSquared / float64(len(r.Latencies))))
}

// WriteText prints the report in a human-readable layout.
func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.Total)
	fmt.Fprintf(w, "Successful:      %d\n", r.Success)
	fmt.Fprintf(w, "Errors:          %d\n", r.Errors)
	if r.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(r.Errors)/float64(r.Total)*100)
		fmt.Fprintf(w, "Cache Hit Rate:  %.2f%%\n", float64(r.CacheHits)/float64(r.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", r.RequestsPerSecond())
	}

	if len(r.Latencies) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", r.Latencies[0])
		fmt.Fprintf(w, "Avg:    %s\n", r.Mean())
		fmt.Fprintf(w, "P50:    %s\n", r.Percentile(50))
		fmt.Fprintf(w, "P90:    %s\n", r.Percentile(90))
		fmt.Fprintf(w, "P95:    %s\n", r.Percentile(95))
		fmt.Fprintf(w, "P99:    %s\n", r.Percentile(99))
		fmt.Fprintf(w, "Max:    %s\n", r.Latencies[len(r.Latencies)-1])
		fmt.Fprintf(w, "StdDev: %s\n", r.StdDev())
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(r.StatusCodes))
	for code := range r.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.StatusCodes[code])
	}
}
