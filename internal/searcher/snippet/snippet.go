// Package snippet picks the excerpt of a document shown under a search hit.
package snippet

import (
	"strings"
	"unicode/utf8"
)

const (
	// WindowWords is the number of words considered for an excerpt.
	WindowWords = 20
	// MaxLength is the maximum excerpt length in characters, not counting
	// the ellipsis.
	MaxLength = 150
	// Ellipsis marks a truncated excerpt.
	Ellipsis = "..."
)

// Generate returns the best WindowWords-word window of the normalised text:
// the first window whose joined text contains the most distinct terms as
// substrings. Excerpts longer than MaxLength characters are cut back to the
// last space inside the limit and suffixed with Ellipsis.
func Generate(normalized string, terms []string) string {
	words := strings.Fields(normalized)
	unique := distinct(terms)

	bestPos, maxMatches := 0, 0
	for i := range words {
		window := strings.Join(words[i:min(i+WindowWords, len(words))], " ")
		matches := 0
		for _, term := range unique {
			if strings.Contains(window, term) {
				matches++
			}
		}
		if matches > maxMatches {
			maxMatches = matches
			bestPos = i
		}
	}

	end := min(bestPos+WindowWords, len(words))
	return truncate(strings.Join(words[bestPos:end], " "))
}

func truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxLength {
		return text
	}
	cut := text
	count := 0
	for i := range text {
		if count == MaxLength {
			cut = text[:i]
			break
		}
		count++
	}
	if idx := strings.LastIndexByte(cut, ' '); idx >= 0 {
		cut = cut[:idx]
	}
	return cut + Ellipsis
}

func distinct(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
