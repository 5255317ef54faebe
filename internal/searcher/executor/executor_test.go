package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/searcher/ranker"
)

func strPtr(s string) *string { return &s }

func newExecutor(docs ...index.Document) *Executor {
	store := index.NewStore()
	ix := index.NewInvertedIndex()
	norm := tokenizer.NewNormalizer(tokenizer.DefaultCacheSize)
	for _, doc := range docs {
		ix.AddDocument(doc, store.Append(doc), norm)
	}
	return New(ix, store, norm)
}

func byID(results []ranker.ScoredDoc) map[string]ranker.ScoredDoc {
	out := make(map[string]ranker.ScoredDoc, len(results))
	for _, r := range results {
		out[r.DocID] = r
	}
	return out
}

func TestExecute_FieldWeights(t *testing.T) {
	e := newExecutor(index.Document{
		ID:          "p1",
		Title:       "Rust Search Engine",
		Description: strPtr("A fast search engine built in Rust"),
		Keywords:    []string{"rust", "search"},
	})

	results := e.Execute([]string{"rust"})
	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "p1", r.DocID)
	assert.Equal(t, 35.0, r.Score)
	assert.True(t, r.TitleMatch)
	assert.True(t, r.DescriptionMatch)
	assert.Equal(t, []string{"rust"}, r.KeywordMatches)
	assert.Nil(t, r.Snippet)
}

func TestExecute_OnlyTouchedDocumentsReturned(t *testing.T) {
	e := newExecutor(
		index.Document{ID: "a", Title: "Nix flakes explained"},
		index.Document{ID: "b", Title: "Writing Go services"},
	)
	results := e.Execute([]string{"flakes"})
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].DocID)

	assert.Empty(t, e.Execute([]string{"haskell"}))
	assert.Empty(t, e.Execute(nil))
}

func TestExecute_PhraseBonus(t *testing.T) {
	e := newExecutor(
		index.Document{ID: "split", Title: "Machine shop notes", Description: strPtr("Learning to weld")},
		index.Document{ID: "phrase", Title: "Intro to Machine Learning"},
		index.Document{ID: "desc", Title: "Notes", Description: strPtr("on machine learning pipelines")},
	)
	results := byID(e.Execute([]string{"machine", "learning"}))
	require.Len(t, results, 3)

	assert.Equal(t, 10.0+5.0, results["split"].Score)
	assert.Equal(t, 10.0+10.0+TitlePhraseBonus, results["phrase"].Score)
	assert.Equal(t, 5.0+5.0+DescriptionPhraseBonus, results["desc"].Score)
	assert.Greater(t, results["phrase"].Score, results["split"].Score)
}

func TestExecute_NoPhraseBonusForSingleTerm(t *testing.T) {
	e := newExecutor(index.Document{ID: "a", Title: "Kernel"})
	results := e.Execute([]string{"kernel"})
	require.Len(t, results, 1)
	assert.Equal(t, 10.0, results[0].Score)
}

func TestExecute_FlagsUseSubstringContainment(t *testing.T) {
	e := newExecutor(index.Document{
		ID:       "a",
		Title:    "The Rustacean Guide",
		Keywords: []string{"rust", "Rust-Lang"},
	})

	results := e.Execute([]string{"rust"})
	require.Len(t, results, 1)
	r := results[0]
	// Only the "rust" keyword posting scores, but the title and the
	// second keyword still contain the term as a substring.
	assert.Equal(t, 20.0, r.Score)
	assert.True(t, r.TitleMatch)
	assert.False(t, r.DescriptionMatch)
	assert.Equal(t, []string{"rust", "Rust-Lang"}, r.KeywordMatches)
}

func TestExecute_RepeatedOccurrencesAccumulate(t *testing.T) {
	e := newExecutor(index.Document{ID: "a", Title: "go go go", Keywords: []string{"Go", "Go"}})
	results := e.Execute([]string{"go"})
	require.Len(t, results, 1)
	assert.Equal(t, 3*10.0+2*20.0, results[0].Score)
	assert.Equal(t, []string{"Go"}, results[0].KeywordMatches)
}

func TestExecute_DuplicateIDsAreIndependent(t *testing.T) {
	e := newExecutor(
		index.Document{ID: "dup", Title: "first post"},
		index.Document{ID: "dup", Title: "second post"},
	)
	results := e.Execute([]string{"post"})
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Position)
	assert.Equal(t, 1, results[1].Position)
}

func TestExecute_KeywordMatchesNeverNil(t *testing.T) {
	e := newExecutor(index.Document{ID: "a", Title: "plain title"})
	results := e.Execute([]string{"plain"})
	require.Len(t, results, 1)
	assert.NotNil(t, results[0].KeywordMatches)
	assert.Empty(t, results[0].KeywordMatches)
}
