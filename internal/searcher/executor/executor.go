// Package executor evaluates normalised query terms against the inverted
// index, accumulating per-document scores and match flags.
package executor

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/searcher/ranker"
)

// Phrase bonuses awarded once per document when the whole multi-term query
// appears verbatim in a normalised field.
const (
	TitlePhraseBonus       = 50.0
	DescriptionPhraseBonus = 25.0
)

// Executor scores documents for a query. It reads the store and index
// without locking; callers must hold the engine's lock.
type Executor struct {
	index  *index.InvertedIndex
	store  *index.Store
	norm   *tokenizer.Normalizer
	logger *slog.Logger
}

// New creates an Executor over the given store and index.
func New(ix *index.InvertedIndex, store *index.Store, norm *tokenizer.Normalizer) *Executor {
	return &Executor{
		index:  ix,
		store:  store,
		norm:   norm,
		logger: slog.Default().With("component", "query-executor"),
	}
}

type matchState struct {
	title       bool
	description bool
	keywords    []string
	seen        map[string]struct{}
}

// Execute returns one unranked result per document hit by at least one of
// terms, ordered by store position. Scores sum the weights of every posting
// hit; match flags come from a separate substring check of each hit term
// against the document's normalised fields.
func (e *Executor) Execute(terms []string) []ranker.ScoredDoc {
	if len(terms) == 0 {
		return []ranker.ScoredDoc{}
	}

	scores := make(map[int]float64)
	matches := make(map[int]*matchState)

	for _, term := range terms {
		postings := e.index.Words(term)
		if len(postings) == 0 {
			continue
		}
		checked := make(map[int]struct{})
		for _, p := range postings {
			scores[p.Position] += p.Weight
			if _, done := checked[p.Position]; done {
				continue
			}
			checked[p.Position] = struct{}{}
			doc, ok := e.store.Get(p.Position)
			if !ok {
				continue
			}
			m, ok := matches[p.Position]
			if !ok {
				m = &matchState{keywords: make([]string, 0), seen: make(map[string]struct{})}
				matches[p.Position] = m
			}
			e.classify(doc, term, m)
		}
	}

	if len(terms) > 1 {
		e.applyPhraseBonus(strings.Join(terms, " "), scores)
	}

	results := make([]ranker.ScoredDoc, 0, len(scores))
	for position, score := range scores {
		doc, ok := e.store.Get(position)
		if !ok {
			continue
		}
		result := ranker.ScoredDoc{
			Position:       position,
			DocID:          doc.ID,
			Score:          score,
			KeywordMatches: []string{},
		}
		if m, ok := matches[position]; ok {
			result.TitleMatch = m.title
			result.DescriptionMatch = m.description
			result.KeywordMatches = m.keywords
		}
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Position < results[j].Position
	})

	e.logger.Debug("query executed",
		"terms", terms,
		"candidates", len(results),
	)
	return results
}

func (e *Executor) classify(doc index.Document, term string, m *matchState) {
	if strings.Contains(e.norm.Normalize(doc.Title), term) {
		m.title = true
	}
	if doc.Description != nil && strings.Contains(e.norm.Normalize(*doc.Description), term) {
		m.description = true
	}
	for _, keyword := range doc.Keywords {
		if !strings.Contains(e.norm.Normalize(keyword), term) {
			continue
		}
		if _, dup := m.seen[keyword]; dup {
			continue
		}
		m.seen[keyword] = struct{}{}
		m.keywords = append(m.keywords, keyword)
	}
}

func (e *Executor) applyPhraseBonus(phrase string, scores map[int]float64) {
	for position := range scores {
		doc, ok := e.store.Get(position)
		if !ok {
			continue
		}
		if strings.Contains(e.norm.Normalize(doc.Title), phrase) {
			scores[position] += TitlePhraseBonus
		}
		if doc.Description != nil && strings.Contains(e.norm.Normalize(*doc.Description), phrase) {
			scores[position] += DescriptionPhraseBonus
		}
	}
}
