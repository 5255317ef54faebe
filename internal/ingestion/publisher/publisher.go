// Package publisher accepts validated posts for asynchronous indexing. Posts
// are optionally persisted to PostgreSQL and then published to Kafka, where
// every searcher replica's index consumer picks them up.
package publisher

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/postgres"
)

const insertPost = `INSERT INTO posts (id, title, description, keywords, request_id)
VALUES ($1, $2, $3, $4, $5)`

// Publisher coordinates post persistence and Kafka event production.
type Publisher struct {
	db       *postgres.Client
	producer kafka.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Publisher. db may be nil, in which case posts are only
// published. A nil m disables instrumentation.
func New(db *postgres.Client, producer kafka.Publisher, m *metrics.Metrics) *Publisher {
	return &Publisher{
		db:       db,
		producer: producer,
		metrics:  m,
		logger:   slog.Default().With("component", "publisher"),
		now:      time.Now,
	}
}

// Publish persists doc (when a database is configured) and publishes a
// PostEvent keyed by the post id. The insert is rolled back if the publish
// fails, so a post is stored only when it is on its way to the index.
func (p *Publisher) Publish(ctx context.Context, doc index.Document, requestID string) error {
	event := kafka.Event{
		Key: doc.ID,
		Value: ingestion.PostEvent{
			Post:       doc,
			RequestID:  requestID,
			IngestedAt: p.now().UTC(),
		},
	}
	if requestID != "" {
		event.Headers = map[string]string{"request_id": requestID}
	}

	var err error
	if p.db == nil {
		err = p.producer.Publish(ctx, event)
	} else {
		err = p.db.InTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, insertPost, insertArgs(doc, requestID)...); err != nil {
				return fmt.Errorf("inserting post: %w", err)
			}
			return p.producer.Publish(ctx, event)
		})
	}
	if err != nil {
		p.count("publish_failed")
		p.logger.Error("post not accepted", "id", doc.ID, "error", err)
		return fmt.Errorf("publishing post %s: %w", doc.ID, err)
	}

	p.count("published")
	p.logger.Debug("post published", "id", doc.ID, "persisted", p.db != nil)
	return nil
}

func (p *Publisher) count(stage string) {
	if p.metrics != nil {
		p.metrics.IngestEventsTotal.WithLabelValues(stage).Inc()
	}
}

func insertArgs(doc index.Document, requestID string) []any {
	return []any{
		doc.ID,
		doc.Title,
		nullableString(doc.Description),
		pq.Array(doc.Keywords),
		sql.NullString{String: requestID, Valid: requestID != ""},
	}
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
