package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/tokenizer"
)

func strPtr(s string) *string { return &s }

func TestStore_AppendAssignsDensePositions(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 0, s.Append(Document{ID: "a"}))
	assert.Equal(t, 1, s.Append(Document{ID: "a"}))
	assert.Equal(t, 2, s.Append(Document{ID: "b"}))
	assert.Equal(t, 3, s.Len())

	doc, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "a", doc.ID)

	_, ok = s.Get(3)
	assert.False(t, ok)
	_, ok = s.Get(-1)
	assert.False(t, ok)

	s.Reset()
	assert.Equal(t, 0, s.Len())
}

func TestDocument_SnippetSource(t *testing.T) {
	assert.Equal(t, "title", Document{Title: "title"}.SnippetSource())
	assert.Equal(t, "desc", Document{Title: "title", Description: strPtr("desc")}.SnippetSource())
	assert.Equal(t, "", Document{Title: "title", Description: strPtr("")}.SnippetSource())
}

func TestInvertedIndex_AddDocumentWeights(t *testing.T) {
	ix := NewInvertedIndex()
	norm := tokenizer.NewNormalizer(tokenizer.DefaultCacheSize)
	ix.AddDocument(Document{
		ID:          "p1",
		Title:       "Rust Search Engine",
		Description: strPtr("A fast search engine built in Rust"),
		Keywords:    []string{"Rust", "Web Assembly"},
	}, 0, norm)

	assert.Equal(t, WordPostingList{
		{Position: 0, Weight: TitleWeight},
		{Position: 0, Weight: DescriptionWeight},
		{Position: 0, Weight: KeywordWeight},
	}, ix.Words("rust"))
	assert.Equal(t, WordPostingList{
		{Position: 0, Weight: TitleWeight},
		{Position: 0, Weight: DescriptionWeight},
	}, ix.Words("search"))

	// Keywords are indexed as one unit, never split into words.
	assert.Equal(t, WordPostingList{{Position: 0, Weight: KeywordWeight}}, ix.Words("web assembly"))
	assert.Nil(t, ix.Words("assembly"))
	assert.Equal(t, KeywordPostingList{0}, ix.Keywords("web assembly"))

	// Single-character tokens ("a") are not indexed.
	assert.Nil(t, ix.Words("a"))
	assert.Equal(t, 2, ix.KeywordCount())
}

func TestInvertedIndex_PerOccurrencePostings(t *testing.T) {
	ix := NewInvertedIndex()
	norm := tokenizer.NewNormalizer(0)
	ix.AddDocument(Document{ID: "p", Title: "go go go", Keywords: []string{"go", "go"}}, 3, norm)

	postings := ix.Words("go")
	require.Len(t, postings, 5)
	var total float64
	for _, p := range postings {
		assert.Equal(t, 3, p.Position)
		total += p.Weight
	}
	assert.Equal(t, 3*TitleWeight+2*KeywordWeight, total)
	assert.Equal(t, KeywordPostingList{3, 3}, ix.Keywords("go"))
	assert.Equal(t, 5, ix.PostingCount())
}

func TestInvertedIndex_NoDescription(t *testing.T) {
	ix := NewInvertedIndex()
	ix.AddDocument(Document{ID: "p", Title: "only title"}, 0, tokenizer.NewNormalizer(10))
	assert.Equal(t, 2, ix.WordCount())
	assert.Equal(t, 0, ix.KeywordCount())
}

func TestInvertedIndex_Reset(t *testing.T) {
	ix := NewInvertedIndex()
	ix.AddDocument(Document{ID: "p", Title: "title words", Keywords: []string{"tag"}}, 0, tokenizer.NewNormalizer(10))
	ix.Reset()
	assert.Equal(t, 0, ix.WordCount())
	assert.Equal(t, 0, ix.KeywordCount())
	assert.Equal(t, 0, ix.PostingCount())
	assert.Nil(t, ix.Words("title"))
}
