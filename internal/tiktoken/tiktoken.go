// Package tiktoken wraps github.com/tiktoken-go/tokenizer to provide the
// default token counter used by the chunk package's semantic and token
// strategies. It is intentionally narrow: callers that need a different
// encoding (or a model-specific one served by a running LLM) implement
// chunk.TokenCounter themselves.
package tiktoken

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

var codec = tokenizer.Cl100kBase

// Count returns the number of tokens the cl100k_base encoding assigns to s.
func Count(s string) (int, error) {
	enc, err := tokenizer.Get(codec)
	if err != nil {
		return 0, fmt.Errorf("tiktoken: load codec: %w", err)
	}

	ids, _, err := enc.Encode(s)
	if err != nil {
		return 0, fmt.Errorf("tiktoken: encode: %w", err)
	}

	return len(ids), nil
}

// Encode returns the cl100k_base token IDs for s.
func Encode(s string) ([]uint, error) {
	enc, err := tokenizer.Get(codec)
	if err != nil {
		return nil, fmt.Errorf("tiktoken: load codec: %w", err)
	}

	ids, _, err := enc.Encode(s)
	if err != nil {
		return nil, fmt.Errorf("tiktoken: encode: %w", err)
	}

	return ids, nil
}

// Decode reconstructs text from cl100k_base token IDs.
func Decode(ids []uint) (string, error) {
	enc, err := tokenizer.Get(codec)
	if err != nil {
		return "", fmt.Errorf("tiktoken: load codec: %w", err)
	}

	s, err := enc.Decode(ids)
	if err != nil {
		return "", fmt.Errorf("tiktoken: decode: %w", err)
	}

	return s, nil
}
