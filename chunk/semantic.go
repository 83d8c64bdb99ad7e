package chunk

import (
	"context"

	"github.com/arborly/groundtext"
)

const (
	defaultSemanticMaxTokens = 800
	defaultSemanticMaxChunks = 0 // 0 means unbounded
)

// SemanticChunker is the default strategy (spec.md §4.2): it splits at
// natural boundaries, paragraph first and sentence within any
// paragraph too large to keep whole, walking the document in source
// order so each chunk's CharOffset is just the previous chunk's End()
// — the "maintain current_pos" offset tracking the spec describes.
// Because every span comes from slicing doc.Text directly rather than
// rebuilding text from tokens, doc.Text[chunk.CharOffset:] trivially
// starts with chunk.Text(): there is no realignment step to run, only
// one to have built the spans so it can never fail.
//
// If the natural split produces more than MaxChunks chunks, the tail
// is collapsed: chunks[MaxChunks-1:] are merged into one final chunk
// spanning from the first of them to the end of the document. The
// merged chunk's text is still a single slice of doc.Text, never a
// join of the individual chunk texts, so its offsets stay exact.
type SemanticChunker struct {
	Counter           TokenCounter
	MaxTokens         int
	SentenceMaxTokens int
	// MaxChunks caps the number of chunks this strategy emits. Zero
	// means unbounded.
	MaxChunks int
}

func (s SemanticChunker) Name() string { return "semantic" }

func (s SemanticChunker) Chunks(ctx context.Context, doc *groundtext.Document) ([]groundtext.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Text == "" {
		return nil, nil
	}

	delegate := ParagraphChunker{
		Counter:           s.Counter,
		MaxTokens:         orDefault(s.MaxTokens, defaultSemanticMaxTokens),
		SentenceMaxTokens: s.SentenceMaxTokens,
	}
	chunks, err := delegate.Chunks(ctx, doc)
	if err != nil {
		return nil, err
	}

	maxChunks := s.MaxChunks
	if maxChunks <= 0 || len(chunks) <= maxChunks {
		return chunks, nil
	}

	kept := chunks[:maxChunks-1]
	tailStart := chunks[maxChunks-1].CharOffset
	tailEnd := chunks[len(chunks)-1].End()
	merged := groundtext.NewChunk(doc, maxChunks-1, tailStart, tailEnd-tailStart)
	return append(append([]groundtext.Chunk{}, kept...), merged), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
