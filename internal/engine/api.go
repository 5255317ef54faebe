package engine

import (
	"encoding/json"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/ingestion/validator"
)

// Placeholders returned when a response cannot be encoded.
const (
	emptyArray  = "[]"
	emptyObject = "{}"
)

var marshal = json.Marshal

// AddDocumentJSON decodes payload as a single post and indexes it. A
// malformed or incomplete payload is rejected and leaves the engine
// unchanged.
func (e *SearchEngine) AddDocumentJSON(payload []byte) error {
	doc, err := validator.DecodeDocument(payload)
	if err != nil {
		if e.metrics != nil {
			e.metrics.DocsRejectedTotal.WithLabelValues("json").Inc()
		}
		e.logger.Debug("document rejected", "error", err)
		return err
	}
	e.AddDocument(doc)
	return nil
}

// SearchJSON runs Search and encodes the results as a JSON array.
func (e *SearchEngine) SearchJSON(query string, maxResults int) string {
	return e.encode(e.Search(query, maxResults), emptyArray)
}

// SearchByTagJSON runs SearchByTag and encodes the results as a JSON array.
func (e *SearchEngine) SearchByTagJSON(tag string) string {
	return e.encode(e.SearchByTag(tag), emptyArray)
}

// StatsJSON encodes Stats as a JSON object.
func (e *SearchEngine) StatsJSON() string {
	return e.encode(e.Stats(), emptyObject)
}

func (e *SearchEngine) encode(v any, fallback string) string {
	data, err := marshal(v)
	if err != nil {
		e.logger.Error("encoding response", "error", err)
		return fallback
	}
	return string(data)
}
