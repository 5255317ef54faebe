package publisher

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
)

type recorder struct {
	mu     sync.Mutex
	events []kafka.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e kafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) PublishBatch(ctx context.Context, events []kafka.Event) error {
	for _, e := range events {
		if err := r.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func TestPublish_WithoutDatabase(t *testing.T) {
	rec := &recorder{}
	m := metrics.New(prometheus.NewRegistry())
	p := New(nil, rec, m)
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	doc := index.Document{ID: "p1", Title: "Rust", Keywords: []string{"rust"}}
	require.NoError(t, p.Publish(context.Background(), doc, "req-1"))

	require.Len(t, rec.events, 1)
	e := rec.events[0]
	assert.Equal(t, "p1", e.Key)
	assert.Equal(t, map[string]string{"request_id": "req-1"}, e.Headers)
	event, ok := e.Value.(ingestion.PostEvent)
	require.True(t, ok)
	assert.Equal(t, doc, event.Post)
	assert.Equal(t, "req-1", event.RequestID)
	assert.Equal(t, 2026, event.IngestedAt.Year())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("published")))
}

func TestPublish_Failure(t *testing.T) {
	rec := &recorder{err: errors.New("broker down")}
	m := metrics.New(prometheus.NewRegistry())
	p := New(nil, rec, m)

	err := p.Publish(context.Background(), index.Document{ID: "p1", Keywords: []string{}}, "")
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("publish_failed")))
}

func TestInsertArgs(t *testing.T) {
	desc := "fast"
	args := insertArgs(index.Document{ID: "p1", Title: "t", Description: &desc, Keywords: []string{"a", "b"}}, "")
	require.Len(t, args, 5)
	assert.Equal(t, "p1", args[0])
	assert.Equal(t, sql.NullString{String: "fast", Valid: true}, args[2])
	assert.Equal(t, sql.NullString{}, args[4])

	keywords, err := args[3].(driver.Valuer).Value()
	require.NoError(t, err)
	assert.Equal(t, `{"a","b"}`, keywords)

	args = insertArgs(index.Document{ID: "p2", Keywords: []string{}}, "req")
	assert.Equal(t, sql.NullString{}, args[2])
	assert.Equal(t, sql.NullString{String: "req", Valid: true}, args[4])
}
