package align_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborly/groundtext"
	"github.com/arborly/groundtext/align"
)

func makeChunk(text string) (groundtext.Document, groundtext.Chunk) {
	doc := groundtext.NewDocument("d1", text)
	return doc, groundtext.NewChunk(&doc, 0, 0, len(text))
}

func TestAlign_ExactMatch(t *testing.T) {
	_, chunk := makeChunk("Alice works at Acme Corp in Denver.")
	extractions := []groundtext.Extraction{{Class: "org", Text: "Acme Corp"}}

	aligned := align.Aligner{}.Align(chunk, extractions)

	require.NotNil(t, aligned[0].CharInterval)
	assert.Equal(t, groundtext.AlignmentExact, aligned[0].AlignmentStatus)
	assert.Equal(t, "Acme Corp", chunk.Text()[aligned[0].CharInterval.Start-chunk.CharOffset:aligned[0].CharInterval.End-chunk.CharOffset])
}

func TestAlign_CaseInsensitiveExactMatch(t *testing.T) {
	_, chunk := makeChunk("ALICE WORKS AT ACME CORP.")
	extractions := []groundtext.Extraction{{Class: "org", Text: "acme corp"}}

	aligned := align.Aligner{}.Align(chunk, extractions)
	require.NotNil(t, aligned[0].CharInterval)
	assert.Equal(t, groundtext.AlignmentExact, aligned[0].AlignmentStatus)
}

func TestAlign_DuplicateTextMatchesSuccessiveOccurrences(t *testing.T) {
	_, chunk := makeChunk("Acme Corp signed with Acme Corp again.")
	extractions := []groundtext.Extraction{
		{Class: "org", Text: "Acme Corp"},
		{Class: "org", Text: "Acme Corp"},
	}

	aligned := align.Aligner{}.Align(chunk, extractions)
	require.NotNil(t, aligned[0].CharInterval)
	require.NotNil(t, aligned[1].CharInterval)
	assert.Less(t, aligned[0].CharInterval.Start, aligned[1].CharInterval.Start)
	assert.Equal(t, 0, aligned[0].CharInterval.Start)
}

func TestAlign_FuzzyMatchOnWordOrderMismatch(t *testing.T) {
	_, chunk := makeChunk("The quarterly revenue grew significantly last year.")
	// Same words as the source span, reordered by the model — not an
	// exact substring, but a perfect word-set match.
	extractions := []groundtext.Extraction{{Class: "metric", Text: "revenue grew quarterly significantly"}}

	aligned := align.Aligner{}.Align(chunk, extractions)
	require.NotNil(t, aligned[0].CharInterval)
	assert.Equal(t, groundtext.AlignmentFuzzy, aligned[0].AlignmentStatus)
	assert.Equal(t, "quarterly revenue grew significantly", chunk.Text()[aligned[0].CharInterval.Start-chunk.CharOffset:aligned[0].CharInterval.End-chunk.CharOffset])
}

func TestAlign_NoMatchLeavesIntervalNil(t *testing.T) {
	_, chunk := makeChunk("This text has nothing to do with the claim.")
	extractions := []groundtext.Extraction{{Class: "x", Text: "completely unrelated content here"}}

	aligned := align.Aligner{}.Align(chunk, extractions)
	assert.Nil(t, aligned[0].CharInterval)
	assert.Equal(t, groundtext.AlignmentNone, aligned[0].AlignmentStatus)
}

func TestAlign_IntervalIsOffsetByChunkPosition(t *testing.T) {
	doc := groundtext.NewDocument("d1", "prefix padding. Acme Corp is here.")
	chunk := groundtext.NewChunk(&doc, 0, 16, len("Acme Corp is here."))

	extractions := []groundtext.Extraction{{Class: "org", Text: "Acme Corp"}}
	aligned := align.Aligner{}.Align(chunk, extractions)

	require.NotNil(t, aligned[0].CharInterval)
	assert.Equal(t, "Acme Corp", doc.Text[aligned[0].CharInterval.Start:aligned[0].CharInterval.End])
}
