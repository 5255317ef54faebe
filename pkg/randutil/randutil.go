// Package randutil shuffles and samples JSON arrays with Fisher-Yates.
package randutil

import (
	"encoding/json"
	"math/rand/v2"
)

// Rand wraps a random source. The zero value is not usable; use New or the
// package-level functions.
type Rand struct {
	r *rand.Rand
}

// New returns a Rand drawing from src.
func New(src rand.Source) *Rand {
	return &Rand{r: rand.New(src)}
}

var global = &Rand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}

func ShuffleIndices(n int) []int { return global.ShuffleIndices(n) }
func ShuffleJSONArray(s string) string { return global.ShuffleJSONArray(s) }
func RandomRange(lo, hi int) int { return global.RandomRange(lo, hi) }
func RandomSample(s string, count int) string { return global.RandomSample(s, count) }

// ShuffleIndices returns a permutation of 0..n-1.
func (g *Rand) ShuffleIndices(n int) []int {
	if n <= 0 {
		return []int{}
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	shuffle(g.r, indices)
	return indices
}

// ShuffleJSONArray returns s with its array elements in random order.
// Input that is not a JSON array is returned unchanged.
func (g *Rand) ShuffleJSONArray(s string) string {
	items, ok := parseArray(s)
	if !ok {
		return s
	}
	shuffle(g.r, items)
	return encode(items, s)
}

// RandomRange returns a uniform integer in [lo, hi]. The bounds may be
// given in either order.
func (g *Rand) RandomRange(lo, hi int) int {
	if lo > hi {
		lo, hi = hi, lo
	}
	// The span is computed in uint64 so ranges wider than MaxInt work; it
	// wraps to 0 only for the full int range.
	span := uint64(hi) - uint64(lo) + 1
	var offset uint64
	if span == 0 {
		offset = g.r.Uint64()
	} else {
		offset = g.r.Uint64N(span)
	}
	return lo + int(offset)
}

// RandomSample returns count distinct elements of the JSON array s in random
// order. When count covers the whole array it is shuffled. Input that is not
// a JSON array is returned unchanged.
func (g *Rand) RandomSample(s string, count int) string {
	items, ok := parseArray(s)
	if !ok {
		return s
	}
	if count >= len(items) {
		shuffle(g.r, items)
		return encode(items, s)
	}
	if count < 0 {
		count = 0
	}
	// Partial Fisher-Yates: the first count slots end up a uniform sample.
	for i := 0; i < count; i++ {
		j := i + g.r.IntN(len(items)-i)
		items[i], items[j] = items[j], items[i]
	}
	return encode(items[:count], s)
}

func shuffle[T any](r *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func parseArray(s string) ([]json.RawMessage, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(s), &items); err != nil || items == nil {
		return nil, false
	}
	return items, true
}

func encode(items []json.RawMessage, fallback string) string {
	out, err := json.Marshal(items)
	if err != nil {
		return fallback
	}
	return string(out)
}
