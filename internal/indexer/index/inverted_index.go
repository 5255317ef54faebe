// Package index holds the document store and the inverted index of the post
// search engine. Neither type is safe for concurrent use; the engine guards
// both with a single lock.
package index

import (
	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/tokenizer"
)

// InvertedIndex maps normalised terms to word postings and normalised
// keywords to the documents tagged with them.
type InvertedIndex struct {
	words    map[string]WordPostingList
	keywords map[string]KeywordPostingList
	postings int
}

// NewInvertedIndex creates an empty InvertedIndex.
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		words:    make(map[string]WordPostingList),
		keywords: make(map[string]KeywordPostingList),
	}
}

// AddDocument indexes doc at position. Title and description tokens get one
// posting per occurrence; every keyword is normalised as a whole and added
// both to the word index and to the keyword index.
func (ix *InvertedIndex) AddDocument(doc Document, position int, norm *tokenizer.Normalizer) {
	for _, term := range norm.Tokenize(doc.Title) {
		ix.addWord(term, position, TitleWeight)
	}
	if doc.Description != nil {
		for _, term := range norm.Tokenize(*doc.Description) {
			ix.addWord(term, position, DescriptionWeight)
		}
	}
	for _, keyword := range doc.Keywords {
		normalized := norm.Normalize(keyword)
		ix.keywords[normalized] = append(ix.keywords[normalized], position)
		ix.addWord(normalized, position, KeywordWeight)
	}
}

func (ix *InvertedIndex) addWord(term string, position int, weight float64) {
	ix.words[term] = append(ix.words[term], WordPosting{Position: position, Weight: weight})
	ix.postings++
}

// Words returns the postings for term, or nil.
func (ix *InvertedIndex) Words(term string) WordPostingList {
	return ix.words[term]
}

// Keywords returns the positions tagged with the normalised keyword, or nil.
func (ix *InvertedIndex) Keywords(keyword string) KeywordPostingList {
	return ix.keywords[keyword]
}

// WordCount returns the number of distinct terms.
func (ix *InvertedIndex) WordCount() int {
	return len(ix.words)
}

// KeywordCount returns the number of distinct normalised keywords.
func (ix *InvertedIndex) KeywordCount() int {
	return len(ix.keywords)
}

// PostingCount returns the total number of word postings.
func (ix *InvertedIndex) PostingCount() int {
	return ix.postings
}

// Reset drops every posting.
func (ix *InvertedIndex) Reset() {
	ix.words = make(map[string]WordPostingList)
	ix.keywords = make(map[string]KeywordPostingList)
	ix.postings = 0
}
