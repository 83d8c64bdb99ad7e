// Package align locates each Resolver-produced extraction's text back
// inside its source chunk: an exact case-insensitive substring search
// first, a ±2-word Jaccard sliding window second, and otherwise no
// interval at all (spec.md §4.6). Every interval it produces is a byte
// range into the original Document, never into the chunk or a
// reconstructed string.
package align

import (
	"strings"

	"github.com/arborly/groundtext"
	"github.com/arborly/groundtext/internal/textsim"
	"github.com/arborly/groundtext/tokenize"
)

// Aligner assigns CharInterval and AlignmentStatus to extractions
// produced from one chunk.
type Aligner struct {
	// FuzzyThreshold is the minimum Jaccard similarity a sliding
	// window must reach to accept a fuzzy match. Zero uses
	// groundtext.DefaultFuzzyThreshold.
	FuzzyThreshold float64
}

// Align returns a copy of extractions with CharInterval and
// AlignmentStatus filled in. Extractions are processed in order, and a
// running per-text search cursor ensures that when the same text
// appears more than once in extractions, each occurrence aligns to a
// later position in the chunk than the last — duplicates in the source
// resolve to duplicates in the output, not N copies of the first hit.
func (a Aligner) Align(chunk groundtext.Chunk, extractions []groundtext.Extraction) []groundtext.Extraction {
	threshold := a.FuzzyThreshold
	if threshold <= 0 {
		threshold = groundtext.DefaultFuzzyThreshold
	}

	text := chunk.Text()
	lowerText := strings.ToLower(text)

	words, wordErr := tokenize.Tokenize(text)
	var wordTokens []tokenize.Token
	if wordErr == nil {
		for _, tok := range words {
			if tok.Kind == tokenize.Word {
				wordTokens = append(wordTokens, tok)
			}
		}
	}

	cursor := map[string]int{} // lowercased text -> next search start, in bytes

	out := make([]groundtext.Extraction, len(extractions))
	for i, ex := range extractions {
		out[i] = ex
		if ex.Text == "" {
			continue
		}

		key := strings.ToLower(ex.Text)
		start := cursor[key]

		if idx := indexFrom(lowerText, key, start); idx >= 0 {
			out[i].CharInterval = &groundtext.CharInterval{
				Start: chunk.CharOffset + idx,
				End:   chunk.CharOffset + idx + len(ex.Text),
			}
			out[i].AlignmentStatus = groundtext.AlignmentExact
			cursor[key] = idx + len(ex.Text)
			continue
		}

		if interval, ok := fuzzyAlign(chunk, wordTokens, ex.Text, threshold); ok {
			out[i].CharInterval = &interval
			out[i].AlignmentStatus = groundtext.AlignmentFuzzy
			continue
		}

		out[i].AlignmentStatus = groundtext.AlignmentNone
	}

	return out
}

// indexFrom finds the first occurrence of needle in haystack at or
// after start, both already lowercased, returning -1 if none exists.
func indexFrom(haystack, needle string, start int) int {
	if start > len(haystack) {
		return -1
	}
	idx := strings.Index(haystack[start:], needle)
	if idx < 0 {
		return -1
	}
	return start + idx
}

// fuzzyAlign slides a window of word tokens across chunk's word list,
// sized within ±2 words of the target text's own word count, and
// returns the window with the highest word-set Jaccard similarity to
// target, provided it clears threshold. The interval is reconstructed
// from the first and last matched word tokens' byte spans — never by
// rejoining words with spaces, which would invent whitespace that may
// not match the source's actual spacing or line breaks.
func fuzzyAlign(chunk groundtext.Chunk, wordTokens []tokenize.Token, target string, threshold float64) (groundtext.CharInterval, bool) {
	targetWords := textsim.Words(target)
	if len(targetWords) == 0 || len(wordTokens) == 0 {
		return groundtext.CharInterval{}, false
	}

	text := chunk.Text()
	targetLen := len(targetWords)

	bestScore := 0.0
	bestStart, bestEnd := -1, -1

	for width := targetLen - 2; width <= targetLen+2; width++ {
		if width < 1 {
			continue
		}
		for start := 0; start+width <= len(wordTokens); start++ {
			windowWords := make([]string, width)
			for w := 0; w < width; w++ {
				tok := wordTokens[start+w]
				windowWords[w] = strings.ToLower(text[tok.Start:tok.End])
			}
			score := textsim.JaccardWords(windowWords, targetWords)
			if score > bestScore {
				bestScore = score
				bestStart = start
				bestEnd = start + width - 1
			}
		}
	}

	if bestStart < 0 || bestScore < threshold {
		return groundtext.CharInterval{}, false
	}

	first := wordTokens[bestStart]
	last := wordTokens[bestEnd]
	return groundtext.CharInterval{
		Start: chunk.CharOffset + first.Start,
		End:   chunk.CharOffset + last.End,
	}, true
}
