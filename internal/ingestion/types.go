// Package ingestion defines the request/response types and Kafka event schemas
// used by the post ingestion pipeline.
package ingestion

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
)

// PostPayload is the JSON body accepted for a new post. Pointer fields let
// validation tell a missing or null field apart from an empty one.
type PostPayload struct {
	ID          *string   `json:"id" validate:"required"`
	Title       *string   `json:"title" validate:"required"`
	Description *string   `json:"description"`
	Keywords    *[]string `json:"keywords" validate:"required"`
}

// Document converts a validated payload into an index document.
func (p *PostPayload) Document() index.Document {
	doc := index.Document{
		ID:          *p.ID,
		Title:       *p.Title,
		Description: p.Description,
		Keywords:    make([]string, len(*p.Keywords)),
	}
	copy(doc.Keywords, *p.Keywords)
	return doc
}

// Ingest statuses reported to callers.
const (
	StatusIndexed  = "indexed"
	StatusAccepted = "accepted"
)

// IngestResponse is returned to the caller after a post is accepted.
type IngestResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Position *int   `json:"position,omitempty"`
}

// PostEvent is the Kafka message payload produced after a post is accepted
// and ready for indexing.
type PostEvent struct {
	Post       index.Document `json:"post"`
	RequestID  string         `json:"request_id,omitempty"`
	IngestedAt time.Time      `json:"ingested_at"`
}
