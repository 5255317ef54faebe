// Package tokenizer provides text normalisation and tokenisation for the
// post search engine. Normalisation lower-cases input, keeps letters,
// digits, whitespace and hyphens, and collapses whitespace runs; tokens are
// the whitespace-separated words of the normalised text.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/postsearch/internal/indexer/lru"
)

// DefaultCacheSize is the number of normalised strings a Normalizer keeps.
const DefaultCacheSize = 1000

// MinTokenLength is the minimum byte length of an indexed token.
const MinTokenLength = 2

// Normalizer memoises NormalizeText behind a bounded LRU cache. The cache
// never changes results, only how often they are recomputed.
type Normalizer struct {
	cache *lru.Cache[string, string]
}

// NewNormalizer creates a Normalizer caching up to cacheSize results. A
// cacheSize <= 0 disables caching.
func NewNormalizer(cacheSize int) *Normalizer {
	return &Normalizer{cache: lru.New[string, string](cacheSize)}
}

// Normalize returns the canonical form of text, consulting the cache first.
func (n *Normalizer) Normalize(text string) string {
	if cached, ok := n.cache.Get(text); ok {
		return cached
	}
	normalized := NormalizeText(text)
	n.cache.Put(text, normalized)
	return normalized
}

// Tokenize splits the normalised text into tokens of at least
// MinTokenLength bytes. Order and duplicates are preserved.
func (n *Normalizer) Tokenize(text string) []string {
	return tokens(n.Normalize(text))
}

// Reset empties the cache.
func (n *Normalizer) Reset() {
	n.cache.Clear()
}

// CacheStats reports lifetime hits and misses and the current entry count.
func (n *Normalizer) CacheStats() (hits, misses int64, size int) {
	hits, misses = n.cache.Stats()
	return hits, misses, n.cache.Len()
}

// NormalizeText lower-cases text, drops every rune that is not alphanumeric,
// whitespace or '-', and collapses whitespace runs into single
// spaces with no leading or trailing space.
func NormalizeText(text string) string {
	lowered := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if isAlphanumeric(r) || unicode.IsSpace(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// isAlphanumeric reports whether r is alphabetic or numeric. Alphabetic
// includes combining vowel signs such as Devanagari matras.
func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Other_Alphabetic, r)
}

// Tokenize is the uncached form of Normalizer.Tokenize.
func Tokenize(text string) []string {
	return tokens(NormalizeText(text))
}

func tokens(normalized string) []string {
	words := strings.Fields(normalized)
	out := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < MinTokenLength {
			continue
		}
		out = append(out, word)
	}
	return out
}
