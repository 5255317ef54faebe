package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/kafka"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 2 * time.Second
)

// Collector buffers events off the request path. With a producer, events are
// published to Kafka in batches and the aggregator is fed by the analytics
// consumer, which sees every replica's traffic. Without one, events go
// straight to the local aggregator.
type Collector struct {
	producer      kafka.Publisher
	sink          *Aggregator
	eventCh       chan any
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewCollector(producer kafka.Publisher, sink *Aggregator, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer:      producer,
		sink:          sink,
		eventCh:       make(chan any, bufferSize),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the delivery loop. It stops when ctx is cancelled or Close
// is called, flushing whatever is buffered.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		flush := func(ctx context.Context) {
			if len(batch) == 0 {
				return
			}
			if err := c.producer.PublishBatch(ctx, batch); err != nil {
				c.logger.Error("failed to publish analytics batch", "count", len(batch), "error", err)
			}
			batch = batch[:0]
		}
		finish := func() {
		drain:
			for {
				select {
				case event, ok := <-c.eventCh:
					if !ok {
						break drain
					}
					batch = c.deliver(event, batch)
				default:
					break drain
				}
			}
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			flush(flushCtx)
		}

		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					finish()
					return
				}
				batch = c.deliver(event, batch)
				if len(batch) >= c.batchSize {
					flush(ctx)
				}
			case <-ticker.C:
				flush(ctx)
			case <-ctx.Done():
				finish()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh), "kafka", c.producer != nil)
}

// Track queues event without blocking. Events are dropped when the buffer
// is full or the collector is closed.
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the buffer to be delivered.
// Start must have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) deliver(event any, batch []kafka.Event) []kafka.Event {
	if c.producer == nil {
		if c.sink != nil {
			c.sink.Record(event)
		}
		return batch
	}
	return append(batch, kafka.Event{Key: "analytics", Value: event})
}
