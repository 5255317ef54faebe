package loadtest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CountsRequestsAndCacheHits(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/search", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		if calls.Add(1)%2 == 0 {
			w.Header().Set("X-Cache", "hit")
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	report, err := Run(context.Background(), Config{
		BaseURL:     srv.URL,
		Concurrency: 2,
		Duration:    100 * time.Millisecond,
		RPS:         100,
		Limit:       5,
		Queries:     []string{"rust", "go"},
	})
	require.NoError(t, err)

	assert.Positive(t, report.Total)
	assert.Equal(t, report.Total, report.Success)
	assert.Zero(t, report.Errors)
	assert.Positive(t, report.CacheHits)
	assert.Equal(t, report.Total, report.StatusCodes[http.StatusOK])
	assert.LessOrEqual(t, report.Total, int64(30), "rate limit keeps the run near 100 rps")
}

func TestRun_CountsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	report, err := Run(context.Background(), Config{
		BaseURL:     srv.URL,
		Concurrency: 1,
		Duration:    50 * time.Millisecond,
		RPS:         50,
	})
	require.NoError(t, err)
	assert.Positive(t, report.Errors)
	assert.Zero(t, report.Success)
}

func TestRun_RejectsZeroConcurrency(t *testing.T) {
	_, err := Run(context.Background(), Config{Concurrency: 0})
	assert.Error(t, err)
}

func TestReport_Statistics(t *testing.T) {
	r := &Report{
		Total:   4,
		Elapsed: 2 * time.Second,
		Latencies: []time.Duration{
			10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond,
		},
		StatusCodes: map[int]int64{200: 3, 500: 1},
	}

	assert.Equal(t, 2.0, r.RequestsPerSecond())
	assert.Equal(t, 25*time.Millisecond, r.Mean())
	assert.Equal(t, 20*time.Millisecond, r.Percentile(50))
	assert.Equal(t, 40*time.Millisecond, r.Percentile(99))
	assert.Equal(t, 10*time.Millisecond, r.Percentile(0))
	assert.InDelta(t, float64(11180*time.Microsecond), float64(r.StdDev()), float64(10*time.Microsecond))

	var buf bytes.Buffer
	r.WriteText(&buf)
	assert.Contains(t, buf.String(), "Requests/sec:    2.00")
	assert.Contains(t, buf.String(), "  500: 1")
	assert.Zero(t, (&Report{}).Percentile(50))
}
