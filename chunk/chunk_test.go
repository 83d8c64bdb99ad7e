package chunk_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborly/groundtext"
	"github.com/arborly/groundtext/chunk"
)

// assertContiguousCoverage checks the invariant every strategy must
// hold: chunks are ordered, non-overlapping, and together span the
// whole document with no gaps.
func assertContiguousCoverage(t *testing.T, doc *groundtext.Document, chunks []groundtext.Chunk) {
	t.Helper()
	if len(chunks) == 0 {
		return
	}
	require.Equal(t, 0, chunks[0].CharOffset)
	for i, c := range chunks {
		assert.Equal(t, doc.Text[c.CharOffset:c.End()], c.Text(), "chunk %d text must be a direct slice", i)
		if i > 0 {
			assert.Equal(t, chunks[i-1].End(), c.CharOffset, "chunk %d must start where chunk %d ends", i, i-1)
		}
	}
	assert.Equal(t, len(doc.Text), chunks[len(chunks)-1].End())
}

func TestTokenChunker_EmptyDocument(t *testing.T) {
	doc := groundtext.NewDocument("d1", "")
	chunks, err := chunk.TokenChunker{}.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestTokenChunker_RespectsByteBudget(t *testing.T) {
	text := strings.Repeat("This sentence has about seven tokens. ", 200)
	doc := groundtext.NewDocument("d1", text)

	c := chunk.TokenChunker{MaxCharBuffer: 500}
	chunks, err := c.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	assertContiguousCoverage(t, &doc, chunks)
	for i, ch := range chunks[:len(chunks)-1] {
		// Allow slack for the single-token-exceeds-budget escape
		// hatch, but a chunk of many short tokens should stay close
		// to budget.
		assert.LessOrEqual(t, ch.CharLength, 600, "chunk %d grew past its budget", i)
	}
}

func TestTokenChunker_PrefersSentenceBreaks(t *testing.T) {
	text := "First sentence ends here. Second sentence ends here too. Third one as well."
	doc := groundtext.NewDocument("d1", text)

	c := chunk.TokenChunker{MaxCharBuffer: 40}
	chunks, err := c.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	assertContiguousCoverage(t, &doc, chunks)

	for _, ch := range chunks[:len(chunks)-1] {
		last := ch.Text()[len(ch.Text())-1]
		assert.Contains(t, " .!?\n", string(last), "chunk should end at a sentence boundary when possible")
	}
}

func TestFixedChunker_ExactWidthWindows(t *testing.T) {
	text := strings.Repeat("abcdefghij", 10) // 100 bytes
	doc := groundtext.NewDocument("d1", text)

	c := chunk.FixedChunker{Size: 30}
	chunks, err := c.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	assertContiguousCoverage(t, &doc, chunks)
	require.Len(t, chunks, 4) // 30,30,30,10
	assert.Equal(t, 10, chunks[3].CharLength)
}

func TestFixedChunker_NeverSplitsARune(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 20) // multi-byte runes throughout
	doc := groundtext.NewDocument("d1", text)

	c := chunk.FixedChunker{Size: 17} // deliberately not a multiple of rune width
	chunks, err := c.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	assertContiguousCoverage(t, &doc, chunks)
	for _, ch := range chunks {
		assert.True(t, isValidUTF8(ch.Text()))
	}
}

func isValidUTF8(s string) bool {
	for _, r := range s {
		if r == '�' {
			return false
		}
	}
	return true
}

func TestSentenceChunker_GroupsUnderBudget(t *testing.T) {
	text := "One. Two. Three. Four. Five. Six. Seven. Eight. Nine. Ten."
	doc := groundtext.NewDocument("d1", text)

	c := chunk.SentenceChunker{MaxTokens: 4}
	chunks, err := c.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	assertContiguousCoverage(t, &doc, chunks)
	require.Greater(t, len(chunks), 1)
}

func TestSentenceChunker_SingleSentenceExceedingBudgetIsKeptWhole(t *testing.T) {
	text := "A single very long run-on sentence with many words in it and no stops anywhere at all."
	doc := groundtext.NewDocument("d1", text)

	c := chunk.SentenceChunker{MaxTokens: 1}
	chunks, err := c.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Text())
}

func TestParagraphChunker_ResplitsOversizedParagraphBySentence(t *testing.T) {
	bigParagraph := strings.Repeat("Sentence number filler words here. ", 100)
	text := "Intro paragraph.\n\n" + bigParagraph + "\n\nOutro paragraph."
	doc := groundtext.NewDocument("d1", text)

	c := chunk.ParagraphChunker{MaxTokens: 50, SentenceMaxTokens: 20}
	chunks, err := c.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	assertContiguousCoverage(t, &doc, chunks)
	assert.Greater(t, len(chunks), 2, "the oversized middle paragraph should have been split")
}

func TestSemanticChunker_MergesTailBeyondMaxChunks(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("Paragraph body text goes here for section.\n\n")
	}
	text := sb.String()
	doc := groundtext.NewDocument("d1", text)

	unbounded := chunk.SemanticChunker{MaxTokens: 5}
	uChunks, err := unbounded.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	require.Greater(t, len(uChunks), 3)

	bounded := chunk.SemanticChunker{MaxTokens: 5, MaxChunks: 3}
	bChunks, err := bounded.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	assertContiguousCoverage(t, &doc, bChunks)
	require.Len(t, bChunks, 3)
	// The merged tail chunk's text must be a direct slice from its
	// start offset to the document's end, not a join of the collapsed
	// chunks' individual texts.
	last := bChunks[2]
	assert.Equal(t, text[last.CharOffset:], last.Text())
}

func TestSemanticChunker_EmptyDocument(t *testing.T) {
	doc := groundtext.NewDocument("d1", "")
	chunks, err := chunk.SemanticChunker{}.Chunks(context.Background(), &doc)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}
