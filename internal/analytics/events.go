// Package analytics collects search and indexing events and aggregates them
// into query statistics: top queries, zero-result queries, cache hit rates
// and latency percentiles.
package analytics

import "time"

type EventType string

const (
	EventSearch    EventType = "search"
	EventTagSearch EventType = "tag_search"
	EventIndexPost EventType = "index_post"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type IndexEvent struct {
	Type      EventType `json:"type"`
	PostID    string    `json:"post_id"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// envelope is decoded first to pick the concrete event type.
type envelope struct {
	Type EventType `json:"type"`
}
