package chunk

import (
	"context"
	"unicode/utf8"

	"github.com/arborly/groundtext"
)

// FixedChunker splits text into fixed-size byte windows regardless of
// word, sentence, or paragraph boundaries. It is the simplest fallback
// strategy (spec.md §4.2): useful for load-testing the pipeline or for
// formats (logs, CSV dumps) where semantic boundaries don't apply.
type FixedChunker struct {
	// Size is the byte width of each chunk except possibly the last.
	// Zero uses groundtext.DefaultMaxCharBuffer.
	Size int
}

func (f FixedChunker) Name() string { return "fixed" }

func (f FixedChunker) Chunks(ctx context.Context, doc *groundtext.Document) ([]groundtext.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := doc.Text
	if text == "" {
		return nil, nil
	}

	size := f.Size
	if size <= 0 {
		size = groundtext.DefaultMaxCharBuffer
	}

	var chunks []groundtext.Chunk
	id := 0
	pos := 0
	for pos < len(text) {
		end := pos + size
		if end > len(text) {
			end = len(text)
		}
		// Never split a multi-byte rune across two chunks.
		for end > pos+1 && end < len(text) && !utf8.RuneStart(text[end]) {
			end--
		}
		chunks = append(chunks, groundtext.NewChunk(doc, id, pos, end-pos))
		id++
		pos = end
	}
	return chunks, nil
}
