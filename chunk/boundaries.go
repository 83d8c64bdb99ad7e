package chunk

import "regexp"

// Regexes compile once at package init (spec.md §9 "Regex compilation"),
// not per call.
var (
	// paragraphBreak matches a run of two or more newlines, the
	// conventional paragraph separator.
	paragraphBreak = regexp.MustCompile(`\n{2,}`)
	// sentenceBoundary matches the whitespace that follows a sentence
	// terminator. It is intentionally conservative (it does not try to
	// special-case abbreviations like "Mr.") — spec.md calls these
	// "simpler fallbacks", not a full sentence segmenter.
	sentenceBoundary = regexp.MustCompile(`[.!?]["')\]]?\s+`)
)

// span is a byte range, used internally while walking boundary matches
// before they're turned into groundtext.Chunks with a shared Document.
type span struct {
	start, end int
}

// splitParagraphs returns the byte spans of each paragraph in text,
// in source order, with no gaps recorded — callers that need the
// separator bytes reconstruct them from text[prev.end:next.start].
func splitParagraphs(text string) []span {
	locs := paragraphBreak.FindAllStringIndex(text, -1)
	return splitOnLocations(text, locs)
}

// splitSentences returns the byte spans of each sentence in text.
func splitSentences(text string) []span {
	locs := sentenceBoundary.FindAllStringIndex(text, -1)
	return splitOnLocations(text, locs)
}

// splitOnLocations turns a list of separator [start,end) matches into
// the spans of the segments between them, trimming nothing — trimming
// is the caller's job once it knows whether the trimmed bytes must be
// recorded as a gap.
func splitOnLocations(text string, seps [][]int) []span {
	var spans []span
	prev := 0
	for _, loc := range seps {
		sepStart, sepEnd := loc[0], loc[1]
		if sepStart > prev {
			spans = append(spans, span{prev, sepStart})
		}
		prev = sepEnd
	}
	if prev < len(text) {
		spans = append(spans, span{prev, len(text)})
	}
	return spans
}
