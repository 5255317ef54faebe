// Package ranker defines the search result record and orders scored results
// for presentation.
package ranker

import (
	"math"
	"sort"
)

// ScoredDoc is one search hit. Position is the document's store position and
// is used for tie-breaking; it is not part of the wire format.
type ScoredDoc struct {
	Position         int      `json:"-"`
	DocID            string   `json:"id"`
	Score            float64  `json:"score"`
	TitleMatch       bool     `json:"title_match"`
	DescriptionMatch bool     `json:"description_match"`
	KeywordMatches   []string `json:"keyword_matches"`
	Snippet          *string  `json:"snippet"`
}

// Rank drops results with a NaN score, clamps infinite scores to zero, sorts
// by score descending and truncates to limit. Equal scores keep ascending
// store position, so the order is reproducible across runs. A negative limit
// is treated as zero.
func Rank(results []ScoredDoc, limit int) []ScoredDoc {
	ranked := make([]ScoredDoc, 0, len(results))
	for _, r := range results {
		if math.IsNaN(r.Score) {
			continue
		}
		if math.IsInf(r.Score, 0) {
			r.Score = 0
		}
		ranked = append(ranked, r)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Position < ranked[j].Position
	})
	if limit < 0 {
		limit = 0
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
