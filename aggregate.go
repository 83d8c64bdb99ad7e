package groundtext

import (
	"sort"

	"github.com/arborly/groundtext/internal/textsim"
)

// Aggregator merges per-chunk extractions into one deduplicated,
// ordered result (spec.md §4.8). It holds no state of its own: every
// call is independent, so Dedup is trivially safe to call repeatedly
// (spec.md §8 "dedup(dedup(xs)) == dedup(xs)").
type Aggregator struct {
	// DedupThreshold is the Jaccard similarity above which two
	// extractions of the same class are considered the same mention.
	// Zero uses DefaultDedupThreshold.
	DedupThreshold float64
}

// dedupKey groups extractions by class and normalized text, the exact
// grouping spec.md §4.8 specifies before the pairwise Jaccard pass.
type dedupKey struct {
	class string
	text  string
}

// Aggregate groups extractions by (class, normalized_text), collapses
// exact-normalized duplicates (highest QualityScore wins), then
// pairwise-merges remaining same-class entries whose word-set Jaccard
// similarity meets the threshold, and finally orders the result by
// CharInterval.Start ascending with unaligned extractions last.
func (ag Aggregator) Aggregate(extractions []Extraction) []Extraction {
	threshold := ag.DedupThreshold
	if threshold <= 0 {
		threshold = DefaultDedupThreshold
	}

	grouped := make(map[dedupKey]Extraction, len(extractions))
	order := make([]dedupKey, 0, len(extractions))

	for _, e := range extractions {
		key := dedupKey{class: e.Class, text: textsim.NormalizeForDedup(e.Text)}
		existing, ok := grouped[key]
		if !ok {
			grouped[key] = e
			order = append(order, key)
			continue
		}
		grouped[key] = preferExtraction(existing, e)
	}

	exact := make([]Extraction, len(order))
	for i, key := range order {
		exact[i] = grouped[key]
	}

	merged := fuzzyMergeByClass(exact, threshold)

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.CharInterval == nil || b.CharInterval == nil {
			return a.CharInterval != nil
		}
		return a.CharInterval.Start < b.CharInterval.Start
	})

	return merged
}

// fuzzyMergeByClass pairwise-compares extractions sharing a class and
// collapses any pair at or above threshold, keeping whichever side
// preferExtraction prefers. O(n^2) within a class, acceptable since a
// single document's per-class extraction count is small relative to
// chunk count.
func fuzzyMergeByClass(extractions []Extraction, threshold float64) []Extraction {
	byClass := make(map[string][]int)
	for i, e := range extractions {
		byClass[e.Class] = append(byClass[e.Class], i)
	}

	absorbed := make([]bool, len(extractions))
	merged := make([]Extraction, len(extractions))
	copy(merged, extractions)

	for _, idxs := range byClass {
		for a := 0; a < len(idxs); a++ {
			if absorbed[idxs[a]] {
				continue
			}
			for b := a + 1; b < len(idxs); b++ {
				if absorbed[idxs[b]] {
					continue
				}
				i, j := idxs[a], idxs[b]
				if textsim.Jaccard(merged[i].Text, merged[j].Text) >= threshold {
					merged[i] = preferExtraction(merged[i], merged[j])
					absorbed[j] = true
				}
			}
		}
	}

	result := make([]Extraction, 0, len(merged))
	for i, e := range merged {
		if !absorbed[i] {
			result = append(result, e)
		}
	}
	return result
}

// preferExtraction implements spec.md §4.8's collapse precedence:
// exact alignment first, then higher quality score, then earliest
// offset.
func preferExtraction(a, b Extraction) Extraction {
	if a.AlignmentStatus != b.AlignmentStatus {
		if a.AlignmentStatus == AlignmentExact {
			return a
		}
		if b.AlignmentStatus == AlignmentExact {
			return b
		}
	}
	if a.QualityScore != b.QualityScore {
		if a.QualityScore > b.QualityScore {
			return a
		}
		return b
	}
	if a.CharInterval != nil && b.CharInterval != nil {
		if a.CharInterval.Start <= b.CharInterval.Start {
			return a
		}
		return b
	}
	if a.CharInterval != nil {
		return a
	}
	return b
}
