package tokenize_test

import (
	"strings"
	"testing"

	"github.com/arborly/groundtext/tokenize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_ReconstructsSource(t *testing.T) {
	tests := []string{
		"",
		"John Doe is 30 years old.",
		"Doctor  Sarah\tJohnson works here",
		"line one\nline two\r\nline three",
		"café naïve 你好", // multi-byte runes must not be split
		"no-whitespace,just!punctuation??",
	}

	for _, source := range tests {
		tokens, err := tokenize.Tokenize(source)
		require.NoError(t, err)

		var rebuilt strings.Builder
		for _, tok := range tokens {
			rebuilt.WriteString(source[tok.Start:tok.End])
		}
		assert.Equal(t, source, rebuilt.String())
	}
}

func TestTokenize_Kinds(t *testing.T) {
	tokens, err := tokenize.Tokenize("John Doe.")
	require.NoError(t, err)
	require.NotEmpty(t, tokens)

	kinds := make([]tokenize.Kind, len(tokens))
	for i, tok := range tokens {
		kinds[i] = tok.Kind
	}

	assert.Equal(t, []tokenize.Kind{
		tokenize.Word, tokenize.Whitespace, tokenize.Word, tokenize.Punctuation,
	}, kinds)
}

func TestTokenize_InvalidUTF8(t *testing.T) {
	_, err := tokenize.Tokenize(string([]byte{0xff, 0xfe}))
	require.Error(t, err)
}

func TestTokenize_NewlineVariants(t *testing.T) {
	tokens, err := tokenize.Tokenize("a\nb\r\nc\rd")
	require.NoError(t, err)

	var newlines int
	for _, tok := range tokens {
		if tok.Kind == tokenize.Newline {
			newlines++
		}
	}
	assert.Equal(t, 3, newlines)
}
