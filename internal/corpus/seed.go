package corpus

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/postsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/resilience"
)

// Indexer is the part of the engine Seed needs.
type Indexer interface {
	AddDocument(doc index.Document) int
}

var seedRetry = resilience.RetryConfig{
	MaxAttempts:  5,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     5 * time.Second,
}

type Report struct {
	Source   string
	Indexed  int
	Rejected int
	Duration time.Duration
}

// Seed loads src and indexes every accepted document in source order.
// Transient load failures are retried; a missing file or malformed content
// fails immediately.
func Seed(ctx context.Context, ix Indexer, src Source, m *metrics.Metrics) (Report, error) {
	logger := slog.Default().With("component", "corpus", "source", src.Name())
	start := time.Now()

	var result LoadResult
	err := resilience.Retry(ctx, "corpus-"+src.Name(), seedRetry, func() error {
		var err error
		result, err = src.Load(ctx)
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, apperrors.ErrMalformedJSON) {
			return resilience.Permanent(err)
		}
		return err
	})
	if err != nil {
		return Report{Source: src.Name()}, err
	}

	for _, doc := range result.Documents {
		ix.AddDocument(doc)
	}
	for _, r := range result.Rejected {
		logger.Warn("post rejected", "index", r.Index, "error", r.Err)
	}
	if m != nil && len(result.Rejected) > 0 {
		m.DocsRejectedTotal.WithLabelValues(src.Name()).Add(float64(len(result.Rejected)))
	}

	report := Report{
		Source:   src.Name(),
		Indexed:  len(result.Documents),
		Rejected: len(result.Rejected),
		Duration: time.Since(start),
	}
	logger.Info("corpus seeded",
		"indexed", report.Indexed,
		"rejected", report.Rejected,
		"duration", report.Duration,
	)
	return report, nil
}
