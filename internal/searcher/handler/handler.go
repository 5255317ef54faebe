// Package handler serves the search HTTP API: full-text and tag search, post
// ingestion, index stats and query-cache administration.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/engine"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/postsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/middleware"
)

// Engine is the search engine as seen by the HTTP layer.
type Engine interface {
	AddDocument(doc index.Document) int
	Search(query string, maxResults int) []ranker.ScoredDoc
	SearchByTag(tag string) []ranker.ScoredDoc
	Stats() engine.Stats
	Clear()
	Instance() string
	Generation() uint64
}

// Ingestor hands accepted posts to the asynchronous indexing pipeline.
type Ingestor interface {
	Publish(ctx context.Context, doc index.Document, requestID string) error
}

// Tracker receives analytics events.
type Tracker interface {
	Track(event any)
}

type Options struct {
	DefaultLimit int
	MaxResults   int
	MaxBodyBytes int64
}

type Handler struct {
	engine    Engine
	cache     *cache.QueryCache
	ingestor  Ingestor
	collector Tracker
	metrics   *metrics.Metrics
	opts      Options
	logger    *slog.Logger
}

// New creates a Handler. queryCache, ingestor, collector and m are optional.
// Without an ingestor, posts are indexed synchronously.
func New(eng Engine, queryCache *cache.QueryCache, ingestor Ingestor, collector Tracker, m *metrics.Metrics, opts Options) *Handler {
	return &Handler{
		engine:    eng,
		cache:     queryCache,
		ingestor:  ingestor,
		collector: collector,
		metrics:   m,
		opts:      opts,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/tags/{tag}", h.SearchByTag)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/posts", h.AddPost)
	mux.HandleFunc("DELETE /api/v1/posts", h.Clear)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	limit := h.opts.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = min(parsed, h.opts.MaxResults)
	}

	key := cache.Key{Kind: cache.KindSearch, Query: query, Limit: limit, Instance: h.engine.Instance(), Generation: h.engine.Generation()}
	payload, returned, cacheStatus := h.lookup(ctx, key, func() []ranker.ScoredDoc {
		return h.engine.Search(query, limit)
	})

	latency := time.Since(start)
	h.observeLatency(cacheStatus, latency)
	logger.FromContext(ctx).Info("search completed",
		"query", query,
		"limit", limit,
		"returned", returned,
		"cache", cacheStatus,
		"latency_ms", latency.Milliseconds(),
	)
	h.track(ctx, analytics.EventSearch, query, returned, latency, cacheStatus == cacheHit)

	w.Header().Set("X-Cache", cacheStatus)
	h.writeRaw(w, http.StatusOK, payload)
}

func (h *Handler) SearchByTag(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tag := r.PathValue("tag")

	key := cache.Key{Kind: cache.KindTag, Query: tag, Instance: h.engine.Instance(), Generation: h.engine.Generation()}
	payload, returned, cacheStatus := h.lookup(ctx, key, func() []ranker.ScoredDoc {
		return h.engine.SearchByTag(tag)
	})

	latency := time.Since(start)
	h.observeLatency(cacheStatus, latency)
	h.track(ctx, analytics.EventTagSearch, tag, returned, latency, cacheStatus == cacheHit)

	w.Header().Set("X-Cache", cacheStatus)
	h.writeRaw(w, http.StatusOK, payload)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

// AddPost validates the body and either indexes it (201) or publishes it for
// asynchronous indexing (202).
func (h *Handler) AddPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	body, err := h.readBody(w, r)
	if err != nil {
		h.countRejected()
		h.writeError(w, err)
		return
	}
	doc, err := validator.DecodeDocument(body)
	if err != nil {
		h.countRejected()
		log.Warn("post rejected", "error", err)
		h.writeError(w, err)
		return
	}

	requestID := middleware.GetRequestID(ctx)
	if h.ingestor != nil {
		if err := h.ingestor.Publish(ctx, doc, requestID); err != nil {
			h.writeError(w, fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err))
			return
		}
		log.Info("post accepted", "id", doc.ID)
		h.writeJSON(w, http.StatusAccepted, ingestion.IngestResponse{ID: doc.ID, Status: ingestion.StatusAccepted})
		return
	}

	position := h.engine.AddDocument(doc)
	if h.collector != nil {
		h.collector.Track(analytics.IndexEvent{
			Type:      analytics.EventIndexPost,
			PostID:    doc.ID,
			Source:    "api",
			Timestamp: time.Now().UTC(),
			RequestID: requestID,
		})
	}
	log.Info("post indexed", "id", doc.ID, "position", position)
	h.writeJSON(w, http.StatusCreated, ingestion.IngestResponse{ID: doc.ID, Status: ingestion.StatusIndexed, Position: &position})
}

// Clear empties the index. Cached responses are keyed by index generation
// and cannot be served again, but they are flushed to free memory.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.engine.Clear()
	if h.cache != nil {
		if _, err := h.cache.Invalidate(r.Context()); err != nil {
			logger.FromContext(r.Context()).Warn("cache flush after clear failed", "error", err)
		}
	}
	logger.FromContext(r.Context()).Info("index cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "enabled",
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrNotConfigured, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "cache invalidation failed"))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "deleted": deleted})
}

// emptyResults is served when results cannot be encoded.
const emptyResults = "[]"

var marshal = json.Marshal

const (
	cacheHit      = "hit"
	cacheMiss     = "miss"
	cacheDisabled = "disabled"
)

// lookup serves key from the query cache, computing and storing it on a
// miss. It returns the encoded results and how many there are. Results that
// cannot be encoded are served as an empty array and never cached.
func (h *Handler) lookup(ctx context.Context, key cache.Key, compute func() []ranker.ScoredDoc) ([]byte, int, string) {
	returned := -1
	encode := func() ([]byte, error) {
		results := compute()
		payload, err := marshal(results)
		if err != nil {
			return nil, err
		}
		returned = len(results)
		return payload, nil
	}

	status := cacheDisabled
	var (
		payload []byte
		err     error
	)
	if h.cache == nil {
		payload, err = encode()
	} else {
		var hit bool
		payload, hit, err = h.cache.GetOrCompute(ctx, key, encode)
		status = cacheMiss
		if hit {
			status = cacheHit
		}
	}
	if err != nil {
		logger.FromContext(ctx).Error("encoding results failed", "kind", key.Kind, "error", err)
		return []byte(emptyResults), 0, status
	}
	if returned < 0 {
		returned = countResults(payload)
	}
	return payload, returned, status
}

func countResults(payload []byte) int {
	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		return 0
	}
	return len(items)
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if h.opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.Newf(apperrors.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge,
				"body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, fmt.Errorf("%w: reading body: %v", apperrors.ErrMalformedJSON, err)
	}
	return body, nil
}

func (h *Handler) track(ctx context.Context, kind analytics.EventType, query string, returned int, latency time.Duration, hit bool) {
	if h.collector == nil {
		return
	}
	h.collector.Track(analytics.SearchEvent{
		Type:      kind,
		Query:     query,
		Terms:     strings.Fields(query),
		Returned:  returned,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  hit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(ctx),
	})
}

func (h *Handler) observeLatency(cacheStatus string, d time.Duration) {
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(d.Seconds())
	}
}

func (h *Handler) countRejected() {
	if h.metrics != nil {
		h.metrics.DocsRejectedTotal.WithLabelValues("api").Inc()
	}
}

func (h *Handler) writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Validation failures list the
// offending fields.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	body := map[string]any{"error": errorMessage(err, status)}

	var verr *validator.ValidationError
	if errors.As(err, &verr) {
		body["error"] = "invalid post"
		body["fields"] = verr.Fields
	}
	h.writeJSON(w, status, body)
}

func errorMessage(err error, status int) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		return "internal error"
	}
	return err.Error()
}
