package chunk

import (
	"context"

	"github.com/arborly/groundtext"
	tk "github.com/arborly/groundtext/internal/tiktoken"
)

// TokenChunker emits chunks of consecutive BPE tokens whose cumulative
// byte length stays within MaxCharBuffer, the direct generalization of
// the teacher's encode/window/decode loop (handler/default.go) from a
// fixed token count to a byte budget, with a preference for cutting
// after a newline or sentence-terminal punctuation mark instead of
// mid-sentence (spec.md §4.2).
type TokenChunker struct {
	// MaxCharBuffer is the byte budget per chunk. Zero uses
	// groundtext.DefaultMaxCharBuffer.
	MaxCharBuffer int
}

func (t TokenChunker) Name() string { return "token" }

func (t TokenChunker) Chunks(ctx context.Context, doc *groundtext.Document) ([]groundtext.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := doc.Text
	if text == "" {
		return nil, nil
	}

	budget := t.MaxCharBuffer
	if budget <= 0 {
		budget = groundtext.DefaultMaxCharBuffer
	}

	ids, err := tk.Encode(text)
	if err != nil {
		return nil, &groundtext.ChunkingError{Reason: "encoding document", Err: err}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	// cum[i] is the byte offset in text reached after the first i
	// tokens. Because cl100k_base is an invertible byte-level BPE,
	// decoding each token alone and summing its byte length recovers
	// exactly the offsets Encode produced, without ever re-encoding a
	// suffix of text.
	cum := make([]int, len(ids)+1)
	for i, id := range ids {
		s, err := tk.Decode([]uint{id})
		if err != nil {
			return nil, &groundtext.ChunkingError{Reason: "decoding token for offset", Err: err}
		}
		cum[i+1] = cum[i] + len(s)
	}

	var chunks []groundtext.Chunk
	id := 0
	pos := 0
	for pos < len(ids) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := pos
		for end < len(ids) && cum[end+1]-cum[pos] <= budget {
			end++
		}
		if end == pos {
			// A single token alone exceeds the budget: take it anyway
			// so the loop still makes progress.
			end = pos + 1
		}

		// Prefer to break at the last token boundary inside (pos, end]
		// that lands right after a newline or sentence terminator.
		breakTok := end
		for k := end - 1; k > pos; k-- {
			if isPreferredBreak(text, cum[k]) {
				breakTok = k
				break
			}
		}

		charOffset := cum[pos]
		charLength := cum[breakTok] - cum[pos]
		chunks = append(chunks, groundtext.NewChunk(doc, id, charOffset, charLength))
		id++
		pos = breakTok
	}

	return chunks, nil
}

// isPreferredBreak reports whether pos sits just after a newline or a
// sentence-terminal punctuation mark (optionally followed by a closing
// quote/bracket and the one whitespace byte the BPE codec often merges
// into the same token as the punctuation), the break points spec.md
// §4.2 asks the token chunker to favor over an arbitrary token
// boundary.
func isPreferredBreak(text string, pos int) bool {
	if pos <= 0 || pos > len(text) {
		return false
	}
	i := pos - 1
	if isTerminalAt(text, i) {
		return true
	}
	if text[i] == ' ' || text[i] == '\t' {
		return i > 0 && isTerminalAt(text, i-1)
	}
	return false
}

// isTerminalAt reports whether text[i] is a newline, a sentence-
// terminal mark, or a closing quote/bracket directly following one.
func isTerminalAt(text string, i int) bool {
	switch text[i] {
	case '\n', '.', '!', '?':
		return true
	case '"', '\'', ')', ']':
		return i > 0 && (text[i-1] == '.' || text[i-1] == '!' || text[i-1] == '?')
	}
	return false
}
