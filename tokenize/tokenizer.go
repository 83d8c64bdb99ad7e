// Package tokenize implements byte-accurate, Unicode-safe tokenization
// of source text into words, punctuation runs, whitespace runs, and
// newlines. Every token carries a byte span into the original string,
// and the concatenation of all spans (plus the bytes between them,
// which there are none of — the grammar is total) reproduces the
// source exactly.
package tokenize

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Kind classifies a Token.
type Kind int

const (
	// Word is a maximal run of letters and/or numbers.
	Word Kind = iota
	// Punctuation is a maximal run of characters that are neither
	// whitespace, a newline, nor a letter/number.
	Punctuation
	// Whitespace is a maximal run of whitespace other than CR and LF
	// (spaces, tabs, form feeds, vertical tabs, non-ASCII spaces).
	Whitespace
	// Newline is a single line terminator (\n, \r\n, or \r).
	Newline
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Punctuation:
		return "punctuation"
	case Whitespace:
		return "whitespace"
	case Newline:
		return "newline"
	default:
		return "unknown"
	}
}

// Token is a (kind, span) pair. Start and End are byte offsets into the
// source string such that source[Start:End] reproduces the token exactly.
type Token struct {
	Kind  Kind
	Start int
	End   int
}

// grammar matches, in priority order: a newline (CRLF or bare LF/CR),
// a run of other whitespace, a run of letters-or-numbers (Unicode-aware via
// \p{L} and \p{N}), or a run of anything else that isn't whitespace.
// The ordering mirrors the teacher's BPE pre-tokenization pattern
// (llm/bpetokenizer.go), generalized from "split for merging" to
// "classify for offset bookkeeping".
const grammarPattern = `\r\n|\n|\r|[^\S\r\n]+|[\p{L}\p{N}]+|[^\s\p{L}\p{N}]+`

var grammar = regexp2.MustCompile(grammarPattern, regexp2.None)

// Tokenize splits source into an ordered list of Tokens covering every
// byte of source. It fails only if source is not valid UTF-8.
func Tokenize(source string) ([]Token, error) {
	if !utf8.ValidString(source) {
		return nil, fmt.Errorf("tokenize: invalid UTF-8 input")
	}

	if len(source) == 0 {
		return nil, nil
	}

	var tokens []Token

	match, err := grammar.FindStringMatch(source)
	for match != nil {
		if err != nil {
			return nil, fmt.Errorf("tokenize: match: %w", err)
		}

		start := match.Index
		end := start + match.Length
		tokens = append(tokens, Token{
			Kind:  classify(match.String()),
			Start: start,
			End:   end,
		})

		match, err = grammar.FindNextMatch(match)
	}
	if err != nil {
		return nil, fmt.Errorf("tokenize: match: %w", err)
	}

	return tokens, nil
}

func classify(text string) Kind {
	switch text {
	case "\n", "\r\n", "\r":
		return Newline
	}

	r, _ := utf8.DecodeRuneInString(text)
	switch {
	case unicode.IsSpace(r):
		return Whitespace
	case isWordRune(r):
		return Word
	default:
		return Punctuation
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
