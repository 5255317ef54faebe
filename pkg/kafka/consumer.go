// Package kafka provides Kafka producer and consumer clients backed by
// segmentio/kafka-go. Posts and analytics events travel as JSON; consumers
// hand each message to a MessageHandler.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/config"
)

// MessageHandler is a callback invoked for each Kafka message. Returning an
// error leaves the message uncommitted.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Role names what a consumer does with its topic. It labels the consumer's
// logs and selects its consumer group.
type Role string

const (
	// RolePostIngest indexes posts published by any replica.
	RolePostIngest Role = "post-ingest"
	// RoleAnalytics aggregates search analytics events.
	RoleAnalytics Role = "analytics"
)

// fetchBackoff is the pause after a failed fetch before trying again.
const fetchBackoff = time.Second

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader    reader
	role      Role
	logger    *slog.Logger
	handler   MessageHandler
	processed atomic.Int64
	failed    atomic.Int64
}

// GroupID returns the consumer group for role. Analytics consumers get their
// own group so every replica's indexer and aggregator each see every event.
func GroupID(base string, role Role) string {
	if role == RolePostIngest {
		return base
	}
	return base + "-" + string(role)
}

// NewConsumer creates a Consumer for the given topic and handler. A new
// consumer group starts at the newest offset; earlier posts are expected to
// come from the seed source.
func NewConsumer(cfg config.KafkaConfig, topic string, role Role, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     GroupID(cfg.ConsumerGroup, role),
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(r, topic, role, handler)
}

func newConsumer(r reader, topic string, role Role, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  r,
		role:    role,
		logger:  slog.Default().With("component", string(role)+"-consumer", "topic", topic),
		handler: handler,
	}
}

// Start enters the consume loop, fetching and processing messages until ctx
// is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping",
					"reason", ctx.Err(),
					"processed", c.processed.Load(),
					"failed", c.failed.Load(),
				)
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			select {
			case <-time.After(fetchBackoff):
			case <-ctx.Done():
			}
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("message received",
		"partition", msg.Partition,
		"offset", msg.Offset,
		"key", string(msg.Key),
		"value_size", len(msg.Value),
	)
	if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
		c.failed.Add(1)
		c.logger.Error("failed to process message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		return
	}
	c.processed.Add(1)
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("failed to commit message",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
	}
}

// Stats returns how many messages were handled successfully and how many
// the handler rejected.
func (c *Consumer) Stats() (processed, failed int64) {
	return c.processed.Load(), c.failed.Load()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
