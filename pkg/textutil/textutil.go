// Package textutil has small helpers for post bodies: reading time, URL
// slugs and markdown headings.
package textutil

import (
	"math"
	"strings"
	"unicode"
)

// ReadingTime estimates minutes to read text at wordsPerMinute. The result
// is at least 1, and 1 when wordsPerMinute is 0.
func ReadingTime(text string, wordsPerMinute int) int {
	if wordsPerMinute <= 0 {
		return 1
	}
	words := len(strings.Fields(text))
	minutes := int(math.Ceil(float64(words) / float64(wordsPerMinute)))
	return max(minutes, 1)
}

// Slug lowercases text, turns whitespace, '-' and '_' into single dashes and
// drops any other non-alphanumeric rune.
func Slug(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Other_Alphabetic, r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '-' })
	return strings.Join(parts, "-")
}

// ExtractHeadings returns the text of ATX headings (# through ######) in
// document order. Lines with seven or more leading '#' and empty headings
// are skipped.
func ExtractHeadings(markdown string) []string {
	headings := []string{}
	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
		if level == 0 || level > 6 {
			continue
		}
		if heading := strings.TrimSpace(trimmed[level:]); heading != "" {
			headings = append(headings, heading)
		}
	}
	return headings
}
