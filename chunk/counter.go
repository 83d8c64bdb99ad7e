package chunk

import (
	"strings"

	tk "github.com/arborly/groundtext/internal/tiktoken"
)

// TiktokenCounter is the default TokenCounter: a cl100k_base-equivalent
// BPE encoder keyed to the target LLM family (spec.md §4.2).
type TiktokenCounter struct{}

func (TiktokenCounter) Count(s string) (int, error) {
	return tk.Count(s)
}

// WordCountCounter estimates tokens by counting whitespace-delimited
// words. It exists only for tests and offline experimentation: the
// spec forbids it in production because it underestimates token
// counts by 20-40% against real BPE tokenizers, which overflows the
// provider's context window. Never wire this as a Config default.
type WordCountCounter struct{}

func (WordCountCounter) Count(s string) (int, error) {
	return len(strings.Fields(s)), nil
}
