package cache

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/postsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/resilience"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	v, ok := s.data[key]
	if !ok {
		return nil, pkgredis.ErrNil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.data[key] = value
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

var cfg = config.RedisConfig{CacheTTL: time.Minute}

func TestKey_NormalizesQuery(t *testing.T) {
	a := Key{Kind: KindSearch, Query: "Rust  Search!", Limit: 10, Generation: 3}
	b := Key{Kind: KindSearch, Query: "rust search", Limit: 10, Generation: 3}
	assert.Equal(t, a.String(), b.String())

	assert.NotEqual(t, a.String(), Key{Kind: KindSearch, Query: "search rust", Limit: 10, Generation: 3}.String(), "term order matters")
	assert.NotEqual(t, a.String(), Key{Kind: KindSearch, Query: "rust search", Limit: 5, Generation: 3}.String())
	assert.NotEqual(t, a.String(), Key{Kind: KindSearch, Query: "rust search", Limit: 10, Generation: 4}.String())
	assert.NotEqual(t, a.String(), Key{Kind: KindTag, Query: "rust search", Limit: 10, Generation: 3}.String())
	assert.NotEqual(t, a.String(), Key{Kind: KindSearch, Query: "rust search", Limit: 10, Generation: 3, Instance: "replica-b"}.String())
	assert.True(t, strings.HasPrefix(a.String(), keyPrefix+KindSearch+":"))
}

func TestKey_TagKeepsRawInput(t *testing.T) {
	lower := Key{Kind: KindTag, Query: "rust", Instance: "a", Generation: 1}
	upper := Key{Kind: KindTag, Query: "RUST", Instance: "a", Generation: 1}
	assert.NotEqual(t, lower.String(), upper.String())
	assert.Equal(t, lower.String(), Key{Kind: KindTag, Query: "rust", Instance: "a", Generation: 1}.String())
}

func TestGetOrCompute_CachesResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	c := New(newMemStore(), cfg, m)
	key := Key{Kind: KindSearch, Query: "rust", Limit: 10}

	calls := 0
	compute := func() ([]byte, error) {
		calls++
		return []byte(`[{"id":"p1"}]`), nil
	}

	got, hit, err := c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, `[{"id":"p1"}]`, string(got))

	got, hit, err = c.GetOrCompute(context.Background(), key, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, `[{"id":"p1"}]`, string(got))
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
}

func TestGetOrCompute_PropagatesComputeError(t *testing.T) {
	c := New(newMemStore(), cfg, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), Key{Kind: KindSearch, Query: "x"}, func() ([]byte, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGetOrCompute_CollapsesConcurrentMisses(t *testing.T) {
	c := New(newMemStore(), cfg, nil)
	key := Key{Kind: KindSearch, Query: "slow", Limit: 1}

	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = c.GetOrCompute(context.Background(), key, func() ([]byte, error) {
				calls.Add(1)
				<-release
				return []byte("[]"), nil
			})
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	assert.Less(t, calls.Load(), int32(10), "concurrent misses share one computation")
}

func TestLargePayloadsAreCompressed(t *testing.T) {
	store := newMemStore()
	c := New(store, cfg, nil)
	key := Key{Kind: KindSearch, Query: "big", Limit: 100}
	payload := bytes.Repeat([]byte(`{"id":"p","score":10}`), 200)

	c.Set(context.Background(), key, payload)
	raw := store.data[key.String()]
	require.NotEmpty(t, raw)
	assert.Equal(t, formatZstd, raw[0])
	assert.Less(t, len(raw), len(payload))

	got, ok := c.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestUnpack_RejectsGarbage(t *testing.T) {
	_, err := unpack(nil)
	assert.Error(t, err)
	_, err = unpack([]byte{9, 1, 2})
	assert.Error(t, err)
	_, err = unpack([]byte{formatZstd, 1, 2, 3})
	assert.Error(t, err)
}

func TestStoreFailuresTripBreaker(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection refused")
	m := metrics.New(prometheus.NewRegistry())
	c := New(store, cfg, m)
	key := Key{Kind: KindSearch, Query: "rust"}

	calls := 0
	for i := 0; i < 10; i++ {
		got, hit, err := c.GetOrCompute(context.Background(), key, func() ([]byte, error) {
			calls++
			return []byte("[]"), nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, "[]", string(got))
	}
	assert.Equal(t, 10, calls)
	assert.Equal(t, resilience.StateOpen, c.BreakerState())
	assert.Equal(t, float64(resilience.StateOpen), testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("redis")))
}

func TestInvalidate(t *testing.T) {
	store := newMemStore()
	c := New(store, cfg, nil)
	c.Set(context.Background(), Key{Kind: KindSearch, Query: "a"}, []byte("[]"))
	c.Set(context.Background(), Key{Kind: KindTag, Query: "b"}, []byte("[]"))
	store.data["unrelated"] = []byte("x")

	n, err := c.Invalidate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, store.data, "unrelated")
}
