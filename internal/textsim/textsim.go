// Package textsim holds the word-set Jaccard similarity and text
// normalization helpers shared by the align, aggregate, and multipass
// packages, so the three components agree on what "the same text"
// means.
package textsim

import (
	"strings"
	"unicode"
)

// Words splits s on whitespace into a lowercased slice, used to build
// the word sets that Jaccard compares. Punctuation is not stripped here:
// align and aggregate decide independently whether punctuation-insensitive
// comparison is appropriate for their use case via NormalizeForDedup.
func Words(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

// Jaccard returns the Jaccard similarity of the word sets of a and b:
// |intersection| / |union|. Two empty strings are similarity 0, not 1 —
// there is nothing in either to align against.
func Jaccard(a, b string) float64 {
	return JaccardWords(Words(a), Words(b))
}

// JaccardWords computes Jaccard similarity directly over two word slices,
// for callers that already have tokenized words (the Aligner does, since
// it precomputes the source's word list once per chunk).
func JaccardWords(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	setA := toSet(a)
	setB := toSet(b)

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// NormalizeForDedup lowercases, collapses whitespace runs, and strips
// punctuation — the normalization the Aggregator and Multi-pass
// Controller use as their "same extraction" grouping key, per the
// spec's (class, normalized_text) dedup key.
func NormalizeForDedup(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	lastWasSpace := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsSpace(r):
			if !lastWasSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			lastWasSpace = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			// dropped entirely, not replaced with a space
		default:
			b.WriteRune(r)
			lastWasSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}
