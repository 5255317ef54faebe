// Package corpus loads an initial set of posts into the search engine from a
// JSON file or the posts table.
package corpus

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/postsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/postsearch/pkg/postgres"
)

type Source interface {
	Name() string
	Load(ctx context.Context) (LoadResult, error)
}

// Rejection records a post that failed validation. Index is its position in
// the source.
type Rejection struct {
	Index int
	Err   error
}

type LoadResult struct {
	Documents []index.Document
	Rejected  []Rejection
}

// FileSource reads a JSON array of posts. Each element is validated on its
// own; invalid elements are rejected without failing the load.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file" }

func (s FileSource) Load(ctx context.Context) (LoadResult, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("reading %s: %w", s.Path, err)
	}
	return ParsePosts(data)
}

// ParsePosts splits data, a JSON array, into validated documents and
// rejections.
func ParsePosts(data []byte) (LoadResult, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return LoadResult{}, fmt.Errorf("%w: expected an array of posts: %v", apperrors.ErrMalformedJSON, err)
	}

	result := LoadResult{Documents: make([]index.Document, 0, len(raw))}
	for i, elem := range raw {
		doc, err := validator.DecodeDocument(elem)
		if err != nil {
			result.Rejected = append(result.Rejected, Rejection{Index: i, Err: err})
			continue
		}
		result.Documents = append(result.Documents, doc)
	}
	return result, nil
}

// PostgresSource reads the posts table in insertion order, so positions
// match the order posts were accepted.
type PostgresSource struct {
	DB *postgres.Client
}

func (s PostgresSource) Name() string { return "postgres" }

func (s PostgresSource) Load(ctx context.Context) (LoadResult, error) {
	rows, err := s.DB.DB.QueryContext(ctx,
		`SELECT id, title, description, keywords FROM posts ORDER BY seq`)
	if err != nil {
		return LoadResult{}, fmt.Errorf("querying posts: %w", err)
	}
	defer rows.Close()

	var result LoadResult
	for rows.Next() {
		doc, err := scanPost(rows)
		if err != nil {
			return LoadResult{}, err
		}
		result.Documents = append(result.Documents, doc)
	}
	if err := rows.Err(); err != nil {
		return LoadResult{}, fmt.Errorf("iterating posts: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (index.Document, error) {
	var (
		doc         index.Document
		description sql.NullString
		keywords    pq.StringArray
	)
	if err := row.Scan(&doc.ID, &doc.Title, &description, &keywords); err != nil {
		return index.Document{}, fmt.Errorf("scanning post row: %w", err)
	}
	if description.Valid {
		doc.Description = &description.String
	}
	doc.Keywords = []string(keywords)
	if doc.Keywords == nil {
		doc.Keywords = []string{}
	}
	return doc, nil
}
