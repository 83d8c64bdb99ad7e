package groundtext

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/arborly/groundtext/internal/textsim"
)

// defaultYieldThreshold is the spec.md §4.9 default: chunks scoring
// below this fraction of the median extraction density are selected
// for re-processing.
const defaultYieldThreshold = 0.5

// defaultConsensusDedupThreshold is deliberately lower than
// DefaultDedupThreshold: consensus merging reconciles independent
// passes over the *same* chunk at decaying temperatures, where
// paraphrasing drift between passes is expected and should still
// collapse, unlike cross-chunk aggregation merging genuinely distinct
// mentions (see DESIGN.md's Open Question decision).
const defaultConsensusDedupThreshold = 0.6

// MultipassController re-runs low-yield chunks at decaying temperature
// and consensus-merges the results across passes (spec.md §4.9). It
// reuses the same Annotator — and therefore the same chunking,
// concurrency, and provider configuration — as the single-pass
// request; nothing here is allowed to hardcode a constant the
// Annotator's Config already owns (spec.md §9 "Config threading").
type MultipassController struct {
	Annotator *Annotator
	// ConsensusDedupThreshold is the Jaccard bar for collapsing
	// same-class extractions across passes. Zero uses
	// defaultConsensusDedupThreshold.
	ConsensusDedupThreshold float64
	// YieldThreshold selects chunks scoring below this fraction of
	// the median yield for re-processing. Zero uses
	// defaultYieldThreshold.
	YieldThreshold float64
}

// passRecord is one pass's vote for a (class, normalized_text) key,
// tracked for the consensus merge's vote-count/alignment/quality
// tie-break (spec.md §4.9 step 5).
type passRecord struct {
	best      Extraction
	passes    map[int]struct{}
	voteCount int
}

// Run executes pass 1 through the Annotator, and — when
// Config.EnableMultipass is set — additional passes over chunks whose
// yield score falls below YieldThreshold, consensus-merging all
// passes' extractions at the end. With MultipassMaxPasses == 1 (or
// EnableMultipass unset) the result equals a plain Annotator.Annotate
// call (spec.md §8 "multi-pass with max_passes=1 == single-pass").
func (m *MultipassController) Run(ctx context.Context, doc Document) (AnnotatedDocument, error) {
	cfg := m.Annotator.Config.WithDefaults()
	if cfg.RequestDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestDeadline)
		defer cancel()
	}

	pass1, err := m.Annotator.Annotate(ctx, doc)
	if err != nil {
		return AnnotatedDocument{}, err
	}

	if !cfg.EnableMultipass || cfg.MultipassMaxPasses <= 1 {
		return pass1, nil
	}

	chunks, err := m.Annotator.Chunker.Chunks(ctx, &doc)
	if err != nil {
		return AnnotatedDocument{}, &ChunkingError{Reason: "chunking document", Err: err}
	}

	allExtractions := append([]Extraction{}, pass1.Extractions...)
	failures := append([]ChunkFailure{}, pass1.PartialFailures...)

	selected := selectLowYieldChunks(chunks, pass1.Extractions, m.yieldThreshold())
	baseTemperature := cfg.Temperature

	for p := 2; p <= cfg.MultipassMaxPasses && len(selected) > 0; p++ {
		passCfg := cfg
		passCfg.Temperature = decayTemperature(baseTemperature, p)

		passAnnotator := *m.Annotator
		passAnnotator.Config = passCfg

		outcomes, err := passAnnotator.runChunks(ctx, doc, selected, passCfg, p)
		if errors.Is(ctx.Err(), context.Canceled) {
			return AnnotatedDocument{}, &CancellationError{Err: fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())}
		}
		if err != nil {
			return AnnotatedDocument{}, err
		}

		for _, o := range outcomes {
			if o.failure != nil {
				failures = append(failures, *o.failure)
				continue
			}
			allExtractions = append(allExtractions, o.extractions...)
		}
	}

	merged := consensusMerge(allExtractions, m.consensusDedupThreshold())

	sort.SliceStable(merged, func(i, j int) bool {
		x, y := merged[i], merged[j]
		if x.CharInterval == nil || y.CharInterval == nil {
			return x.CharInterval != nil
		}
		return x.CharInterval.Start < y.CharInterval.Start
	})

	return AnnotatedDocument{Document: doc, Extractions: merged, PartialFailures: failures}, nil
}

func (m *MultipassController) yieldThreshold() float64 {
	if m.YieldThreshold > 0 {
		return m.YieldThreshold
	}
	return defaultYieldThreshold
}

func (m *MultipassController) consensusDedupThreshold() float64 {
	if m.ConsensusDedupThreshold > 0 {
		return m.ConsensusDedupThreshold
	}
	return defaultConsensusDedupThreshold
}

// decayTemperature implements spec.md §4.9 step 4: t_p = t_1 × 0.8^(p-1),
// floored at 0.05 so later passes never reach deterministic-zero
// sampling.
func decayTemperature(t1 float32, pass int) float32 {
	decayed := float64(t1) * math.Pow(0.8, float64(pass-1))
	if decayed < 0.05 {
		decayed = 0.05
	}
	return float32(decayed)
}

// selectLowYieldChunks scores each chunk's extraction density against
// the median across all chunks (spec.md §4.9 step 2) and returns the
// chunks scoring below threshold. A chunk with zero extractions and a
// nonzero median always qualifies.
func selectLowYieldChunks(chunks []Chunk, extractions []Extraction, threshold float64) []Chunk {
	counts := make(map[int]int, len(chunks))
	for _, e := range extractions {
		counts[e.ChunkID]++
	}

	densities := make([]float64, len(chunks))
	for i, c := range chunks {
		densities[i] = densityPerKB(counts[c.ID], c.CharLength)
	}
	median := medianOf(densities)
	if median == 0 {
		return nil
	}

	var selected []Chunk
	for i, c := range chunks {
		if densities[i]/median < threshold {
			selected = append(selected, c)
		}
	}
	return selected
}

func densityPerKB(count, byteLength int) float64 {
	kb := float64(byteLength) / 1024
	if kb <= 0 {
		return float64(count)
	}
	return float64(count) / kb
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// consensusMerge implements spec.md §4.9 step 5: group extractions by
// (class, normalized_text), tally the distinct passes that produced
// each key, and for each key keep the extraction with the best
// alignment/quality. When near-duplicate keys collapse, the survivor
// is chosen by higher vote count, then exact alignment, then quality
// score (DESIGN.md's Open Question decision); a singleton from a later
// pass survives only if it aligned exactly.
func consensusMerge(extractions []Extraction, threshold float64) []Extraction {
	records := make(map[dedupKey]*passRecord)
	order := make([]dedupKey, 0, len(extractions))

	for _, e := range extractions {
		key := dedupKey{class: e.Class, text: textsim.NormalizeForDedup(e.Text)}
		rec, ok := records[key]
		if !ok {
			rec = &passRecord{best: e, passes: map[int]struct{}{}}
			records[key] = rec
			order = append(order, key)
		}
		if _, seen := rec.passes[e.Pass]; !seen {
			rec.passes[e.Pass] = struct{}{}
			rec.voteCount++
		}
		rec.best = preferExtraction(rec.best, e)
	}

	candidates := make([]Extraction, 0, len(order))
	votes := make(map[dedupKey]int, len(order))
	for _, key := range order {
		candidates = append(candidates, records[key].best)
		votes[key] = records[key].voteCount
	}

	merged := fuzzyMergeByClassWithVotes(candidates, votes, threshold)

	result := make([]Extraction, 0, len(merged))
	for _, e := range merged {
		key := dedupKey{class: e.Class, text: textsim.NormalizeForDedup(e.Text)}
		_, inPass1 := records[key].passes[1]
		if votes[key] > 1 || inPass1 || e.AlignmentStatus == AlignmentExact {
			result = append(result, e)
		}
		// Later-pass singletons that never aligned exactly are dropped
		// per spec.md §4.9 step 5's "kept only if aligned exactly".
	}
	return result
}

// fuzzyMergeByClassWithVotes pairwise-collapses same-class candidates
// above threshold, like fuzzyMergeByClass, but keeps the side with more
// votes (falling back to preferExtraction on a tie) and sums the votes
// of any pair it merges so a later Jaccard-collapse doesn't lose a vote
// cast under slightly different phrasing.
func fuzzyMergeByClassWithVotes(candidates []Extraction, votes map[dedupKey]int, threshold float64) []Extraction {
	byClass := make(map[string][]int)
	for i, e := range candidates {
		byClass[e.Class] = append(byClass[e.Class], i)
	}

	absorbed := make([]bool, len(candidates))
	merged := make([]Extraction, len(candidates))
	copy(merged, candidates)

	keyOf := func(e Extraction) dedupKey {
		return dedupKey{class: e.Class, text: textsim.NormalizeForDedup(e.Text)}
	}

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
					vi, vj := votes[keyOf(merged[i])], votes[keyOf(merged[j])]
					winner := preferExtraction(merged[i], merged[j])
					if vi > vj {
						winner = merged[i]
					} else if vj > vi {
						winner = merged[j]
					}
					votes[keyOf(winner)] = vi + vj
					merged[i] = winner
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
