// Package consumer reads post events from Kafka and adds them to the local
// search engine.
package consumer

import (
	"context"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
)

// Indexer is the part of the search engine the consumer writes to.
type Indexer interface {
	AddDocument(doc index.Document) int
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that indexes every post
// event. Undecodable events are logged, counted and committed so they do not
// block the partition. A nil m disables instrumentation.
func HandleMessage(ix Indexer, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	count := func(stage string) {
		if m != nil {
			m.IngestEventsTotal.WithLabelValues(stage).Inc()
		}
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.PostEvent](value)
		if err != nil {
			count("decode_failed")
			logger.Error("failed to decode post event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if event.Post.Keywords == nil {
			event.Post.Keywords = []string{}
		}

		position := ix.AddDocument(event.Post)
		count("indexed")
		logger.Info("post indexed",
			"id", event.Post.ID,
			"position", position,
			"request_id", event.RequestID,
		)
		return nil
	}
}
