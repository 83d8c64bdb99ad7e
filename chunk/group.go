package chunk

import "github.com/arborly/groundtext"

// coverSpans extends each span's end to the next span's start (so the
// separator bytes between two sentences or paragraphs belong to the
// preceding span) and stretches the first span back to rangeStart and
// the last span forward to rangeEnd. The result is a gap-free
// partition of [rangeStart, rangeEnd), which is what lets the grouped
// chunks below cover the whole document (or the sub-range a caller is
// re-splitting) with no missing bytes.
func coverSpans(spans []span, rangeStart, rangeEnd int) []span {
	if len(spans) == 0 {
		return spans
	}
	spans[0].start = rangeStart
	for i := 0; i < len(spans)-1; i++ {
		spans[i].end = spans[i+1].start
	}
	spans[len(spans)-1].end = rangeEnd
	return spans
}

// groupSpans merges consecutive spans into groups whose summed
// per-span token count stays within maxTokens, always including at
// least one span per group so a single oversized span still makes
// progress. It returns the merged byte ranges, not yet IDed: callers
// that nest groupSpans (the paragraph chunker re-splitting an
// oversized paragraph by sentence) need to assign chunk IDs once, in
// source order, after every nested call has run.
//
// Token counts are measured per span and summed rather than
// re-measured on the growing group text: BPE merges across a span
// boundary make the sum an approximation of the true joint count, but
// re-counting the whole group on every span is quadratic and the
// spec's budgets are soft targets, not hard limits.
func groupSpans(doc *groundtext.Document, spans []span, counter TokenCounter, maxTokens int) ([]span, error) {
	if len(spans) == 0 {
		return nil, nil
	}

	counts := make([]int, len(spans))
	for i, sp := range spans {
		n, err := counter.Count(doc.Text[sp.start:sp.end])
		if err != nil {
			return nil, &groundtext.ChunkingError{Reason: "counting span tokens", Err: err}
		}
		counts[i] = n
	}

	var groups []span
	i := 0
	for i < len(spans) {
		groupStart := spans[i].start
		sum := counts[i]
		j := i + 1
		for j < len(spans) && sum+counts[j] <= maxTokens {
			sum += counts[j]
			j++
		}
		groups = append(groups, span{groupStart, spans[j-1].end})
		i = j
	}
	return groups, nil
}

// spansToChunks assigns sequential IDs to already-ordered, non-
// overlapping spans and materializes them as chunks.
func spansToChunks(doc *groundtext.Document, spans []span) []groundtext.Chunk {
	chunks := make([]groundtext.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = groundtext.NewChunk(doc, i, sp.start, sp.end-sp.start)
	}
	return chunks
}
