// Package cache stores encoded search responses in Redis. Keys include the
// engine instance id and its generation, so a response is only served to the
// engine that computed it and only until its corpus changes. Redis calls run behind a circuit breaker; when
// Redis misbehaves the cache degrades to computing every response.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/postsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/resilience"
)

const keyPrefix = "postsearch:"

// Payloads at least this large are stored zstd-compressed.
const compressThreshold = 512

const (
	formatRaw  byte = 0
	formatZstd byte = 1
)

// Kinds of cached responses.
const (
	KindSearch = "search"
	KindTag    = "tag"
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Store is the subset of the Redis client the cache needs. Get must return
// an error satisfying pkgredis.IsNilError for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one cached response.
type Key struct {
	Kind       string
	Query      string
	Limit      int
	Instance   string
	Generation uint64
}

// String returns the Redis key. Search queries that normalize to the same
// text share a key because the engine cannot tell them apart. Tag responses
// echo the raw tag, so tag keys use it verbatim.
func (k Key) String() string {
	query := k.Query
	if k.Kind == KindSearch {
		query = tokenizer.NormalizeText(query)
	}
	raw := fmt.Sprintf("inst=%s|gen=%d|limit=%d|q=%s", k.Instance, k.Generation, k.Limit, query)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, k.Kind, hash[:16])
}

// QueryCache caches encoded responses.
type QueryCache struct {
	store   Store
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a QueryCache over store. A nil m disables instrumentation.
func New(store Store, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	c := &QueryCache{
		store:   store,
		ttl:     cfg.CacheTTL,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
	c.breaker = resilience.NewCircuitBreaker("redis", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		OnStateChange: func(name string, _, to resilience.State) {
			if m != nil {
				m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			}
		},
	})
	return c
}

// Get returns the cached response for key.
func (c *QueryCache) Get(ctx context.Context, key Key) ([]byte, bool) {
	redisKey := key.String()
	var data []byte
	err := c.breaker.Execute(func() error {
		var err error
		data, err = c.store.Get(ctx, redisKey)
		if pkgredis.IsNilError(err) {
			data = nil
			return nil
		}
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", redisKey, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	if data == nil {
		c.recordMiss()
		return nil, false
	}
	payload, err := unpack(data)
	if err != nil {
		c.logger.Error("cache entry unreadable", "key", redisKey, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	c.logger.Debug("cache hit", "kind", key.Kind, "key", redisKey)
	return payload, true
}

// Set stores payload under key with the configured TTL. Failures are logged
// and otherwise ignored.
func (c *QueryCache) Set(ctx context.Context, key Key, payload []byte) {
	redisKey := key.String()
	err := c.breaker.Execute(func() error {
		return c.store.Set(ctx, redisKey, pack(payload), c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", redisKey, "error", err)
	}
}

// GetOrCompute returns the cached response for key, or runs compute once per
// key across concurrent callers and caches its result. The bool reports a
// cache hit.
func (c *QueryCache) GetOrCompute(ctx context.Context, key Key, compute func() ([]byte, error)) ([]byte, bool, error) {
	if payload, ok := c.Get(ctx, key); ok {
		return payload, true, nil
	}
	val, err, _ := c.group.Do(key.String(), func() (any, error) {
		payload, err := compute()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, payload)
		return payload, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]byte), false, nil
}

// Invalidate deletes every cached response.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns lifetime hits and misses.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the Redis circuit breaker state.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

func (c *QueryCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func pack(payload []byte) []byte {
	if len(payload) < compressThreshold {
		return append([]byte{formatRaw}, payload...)
	}
	return encoder.EncodeAll(payload, []byte{formatZstd})
}

func unpack(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty cache entry")
	}
	switch data[0] {
	case formatRaw:
		return data[1:], nil
	case formatZstd:
		out, err := decoder.DecodeAll(data[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing cache entry: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown cache entry format %d", data[0])
	}
}
