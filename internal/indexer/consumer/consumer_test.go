package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
)

type fakeIndexer struct {
	docs []index.Document
}

func (f *fakeIndexer) AddDocument(doc index.Document) int {
	f.docs = append(f.docs, doc)
	return len(f.docs) - 1
}

func TestHandleMessage_IndexesPost(t *testing.T) {
	ix := &fakeIndexer{}
	m := metrics.New(prometheus.NewRegistry())
	handle := HandleMessage(ix, m)

	desc := "fast"
	value, err := json.Marshal(ingestion.PostEvent{
		Post:       index.Document{ID: "p1", Title: "Rust", Description: &desc, Keywords: []string{"rust"}},
		RequestID:  "req-1",
		IngestedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, handle(context.Background(), []byte("p1"), value))
	require.Len(t, ix.docs, 1)
	assert.Equal(t, "p1", ix.docs[0].ID)
	require.NotNil(t, ix.docs[0].Description)
	assert.Equal(t, "fast", *ix.docs[0].Description)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("indexed")))
}

func TestHandleMessage_NullKeywordsBecomeEmpty(t *testing.T) {
	ix := &fakeIndexer{}
	handle := HandleMessage(ix, nil)
	require.NoError(t, handle(context.Background(), nil, []byte(`{"post":{"id":"p","title":"t","keywords":null}}`)))
	require.Len(t, ix.docs, 1)
	assert.NotNil(t, ix.docs[0].Keywords)
}

func TestHandleMessage_SkipsGarbage(t *testing.T) {
	ix := &fakeIndexer{}
	m := metrics.New(prometheus.NewRegistry())
	handle := HandleMessage(ix, m)

	assert.NoError(t, handle(context.Background(), []byte("k"), []byte("not json")))
	assert.Empty(t, ix.docs)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestEventsTotal.WithLabelValues("decode_failed")))
}
