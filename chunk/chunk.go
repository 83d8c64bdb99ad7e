// Package chunk splits Document text into ordered, offset-tagged
// groundtext.Chunks under a token or character budget. It implements
// the spec's semantic, token, fixed, sentence, and paragraph
// strategies behind one Chunker interface (spec.md §4.2).
package chunk

import (
	"context"

	"github.com/arborly/groundtext"
)

// Chunker is the capability every chunking strategy implements. The
// number of strategies is fixed by the spec, so (unlike the open-ended
// LLM provider set) a simple interface with a handful of concrete
// implementations is enough — no plugin registry is needed.
type Chunker interface {
	// Chunks splits doc.Text into an ordered sequence of chunks. The
	// source is shared by reference: chunks never copy doc.Text.
	Chunks(ctx context.Context, doc *groundtext.Document) ([]groundtext.Chunk, error)
	// Name identifies the strategy for logging.
	Name() string
}

// TokenCounter counts tokens in a string for budget enforcement. The
// default is internal/tiktoken's cl100k_base-equivalent encoder;
// callers may supply a model-specific counter instead.
type TokenCounter interface {
	Count(s string) (int, error)
}
