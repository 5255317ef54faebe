// Package engine ties the document store, inverted index, executor, ranker
// and snippet generator together behind a single SearchEngine.
//
// A SearchEngine is safe for concurrent use. AddDocument and Clear are
// writers; Search, SearchByTag and Stats are readers and may run alongside
// each other. The normalization cache has its own lock and is only touched
// while the engine lock is held.
package engine

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/searcher/snippet"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
)

// TagScore is the fixed score of an exact tag match.
const TagScore = 100.0

// Result types recorded on the search_queries_total counter.
const (
	resultEmptyQuery = "empty_query"
	resultNoResults  = "no_results"
	resultHits       = "hits"
)

// Stats reports the size of the index.
type Stats struct {
	TotalPosts      int `json:"total_posts"`
	IndexedWords    int `json:"indexed_words"`
	IndexedKeywords int `json:"indexed_keywords"`
}

// SearchEngine is an in-memory full-text index over posts.
type SearchEngine struct {
	mu    sync.RWMutex
	store *index.Store
	index *index.InvertedIndex
	norm  *tokenizer.Normalizer
	exec  *executor.Executor

	instance   string
	generation atomic.Uint64

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates an empty SearchEngine. A nil m disables instrumentation.
func New(cfg config.EngineConfig, m *metrics.Metrics) *SearchEngine {
	store := index.NewStore()
	ix := index.NewInvertedIndex()
	norm := tokenizer.NewNormalizer(cfg.NormalizerCacheSize)
	e := &SearchEngine{
		store:    store,
		index:    ix,
		norm:     norm,
		exec:     executor.New(ix, store, norm),
		instance: uuid.NewString(),
		metrics:  m,
		logger:   slog.Default().With("component", "search-engine"),
	}
	if m != nil {
		if err := m.RegisterNormalizerCache(norm.CacheStats); err != nil {
			e.logger.Warn("normalizer cache metrics not registered", "error", err)
		}
	}
	e.logger.Info("search engine created", "instance", e.instance, "normalizer_cache_size", cfg.NormalizerCacheSize)
	return e
}

// AddDocument stores doc, indexes it and returns its position. Duplicate ids
// are indexed independently.
func (e *SearchEngine) AddDocument(doc index.Document) int {
	start := time.Now()

	e.mu.Lock()
	position := e.store.Append(doc)
	e.index.AddDocument(doc, position, e.norm)
	stats := e.statsLocked()
	e.generation.Add(1)
	e.mu.Unlock()

	e.observe("add", start)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.setIndexGauges(stats)
	}
	e.logger.Debug("document indexed", "id", doc.ID, "position", position)
	return position
}

// Search returns up to maxResults documents matching query, best first, each
// with a snippet. An empty or whitespace-only query matches nothing.
func (e *SearchEngine) Search(query string, maxResults int) []ranker.ScoredDoc {
	if strings.TrimSpace(query) == "" {
		e.countQuery(resultEmptyQuery, 0)
		return []ranker.ScoredDoc{}
	}
	start := time.Now()

	e.mu.RLock()
	terms := strings.Fields(e.norm.Normalize(query))
	results := ranker.Rank(e.exec.Execute(terms), maxResults)
	for i := range results {
		results[i].Snippet = e.snippetLocked(results[i].Position, terms)
	}
	e.mu.RUnlock()

	e.observe("search", start)
	if len(results) == 0 {
		e.countQuery(resultNoResults, 0)
	} else {
		e.countQuery(resultHits, len(results))
	}
	return results
}

// SearchByTag returns every document carrying a keyword that normalizes to
// the same form as tag, in insertion order. Each result scores TagScore and
// reports tag as its only keyword match.
func (e *SearchEngine) SearchByTag(tag string) []ranker.ScoredDoc {
	start := time.Now()

	e.mu.RLock()
	positions := e.index.Keywords(e.norm.Normalize(tag))
	results := make([]ranker.ScoredDoc, 0, len(positions))
	for _, position := range positions {
		doc, ok := e.store.Get(position)
		if !ok {
			continue
		}
		results = append(results, ranker.ScoredDoc{
			Position:       position,
			DocID:          doc.ID,
			Score:          TagScore,
			KeywordMatches: []string{tag},
		})
	}
	e.mu.RUnlock()

	e.observe("tag", start)
	return results
}

// Stats reports the number of stored posts and distinct indexed terms.
func (e *SearchEngine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.statsLocked()
}

// Clear drops every document, index entry and cached normalization. It is
// idempotent.
func (e *SearchEngine) Clear() {
	start := time.Now()

	e.mu.Lock()
	e.store.Reset()
	e.index.Reset()
	e.norm.Reset()
	e.generation.Add(1)
	e.mu.Unlock()

	e.observe("clear", start)
	if e.metrics != nil {
		e.setIndexGauges(Stats{})
	}
	e.logger.Info("search engine cleared")
}

// Instance identifies this engine for the life of the process. Generations
// of different engines are unrelated, so shared caches key on both.
func (e *SearchEngine) Instance() string {
	return e.instance
}

// Generation changes whenever the indexed corpus changes. Callers caching
// search responses include it in their keys.
func (e *SearchEngine) Generation() uint64 {
	return e.generation.Load()
}

// NormalizerCacheStats reports lifetime hits, misses and the current size of
// the normalization cache.
func (e *SearchEngine) NormalizerCacheStats() (hits, misses int64, size int) {
	return e.norm.CacheStats()
}

func (e *SearchEngine) statsLocked() Stats {
	return Stats{
		TotalPosts:      e.store.Len(),
		IndexedWords:    e.index.WordCount(),
		IndexedKeywords: e.index.KeywordCount(),
	}
}

func (e *SearchEngine) snippetLocked(position int, terms []string) *string {
	doc, ok := e.store.Get(position)
	if !ok {
		return nil
	}
	s := snippet.Generate(e.norm.Normalize(doc.SnippetSource()), terms)
	return &s
}

func (e *SearchEngine) observe(operation string, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.EngineOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (e *SearchEngine) countQuery(resultType string, n int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	if resultType != resultEmptyQuery {
		e.metrics.SearchResultsCount.Observe(float64(n))
	}
}

func (e *SearchEngine) setIndexGauges(s Stats) {
	e.metrics.IndexedPosts.Set(float64(s.TotalPosts))
	e.metrics.IndexedWords.Set(float64(s.IndexedWords))
	e.metrics.IndexedKeywords.Set(float64(s.IndexedKeywords))
}
