// Package groundtext orchestrates LLM-based extraction of structured,
// source-grounded information from unstructured text: every value it
// returns carries a verified character offset into the document it
// came from. See SPEC_FULL.md for the full design.
package groundtext

// Document is an immutable, shared-ownership view of one input text.
// A Go string is already a (pointer, length) pair over an immutable
// byte array, so copying a Document's Text field — or slicing it for
// a Chunk — never copies the underlying bytes; this satisfies the
// "cloning a document must not copy the text" invariant without any
// manual reference counting.
type Document struct {
	// ID uniquely identifies the document within a request.
	ID string
	// Text is the full source text.
	Text string
	// Metadata is caller-supplied, opaque to the pipeline.
	Metadata map[string]string
}

// NewDocument builds a Document, generating an ID from the content hash
// when id is empty so that identical inputs reprocessed later collide
// deterministically (useful as a resolve-cache key).
func NewDocument(id, text string) Document {
	if id == "" {
		id = contentID(text)
	}
	return Document{ID: id, Text: text}
}

// Chunk is a half-open byte range [CharOffset, CharOffset+CharLength)
// into a Document's Text, plus its ordinal position in the chunk
// stream. Chunk does not copy the document's text: Text() returns a
// borrowed slice of the shared source.
type Chunk struct {
	// ID is the chunk's ordinal position, assigned in source order.
	ID int
	// CharOffset is the byte offset of the chunk's first byte.
	CharOffset int
	// CharLength is the number of bytes the chunk spans.
	CharLength int

	doc *Document
	// text caches the slice so repeated Text() calls (and the token
	// chunker's pre-computed interval) don't re-slice on every access.
	text string
}

// NewChunk constructs a Chunk over doc[charOffset : charOffset+charLength].
// It panics if the range falls outside doc.Text — a chunker bug, not a
// runtime condition callers should recover from.
func NewChunk(doc *Document, id, charOffset, charLength int) Chunk {
	end := charOffset + charLength
	if charOffset < 0 || end > len(doc.Text) {
		panic("groundtext: chunk range out of bounds")
	}
	return Chunk{
		ID:         id,
		CharOffset: charOffset,
		CharLength: charLength,
		doc:        doc,
		text:       doc.Text[charOffset:end],
	}
}

// Text returns the chunk's borrowed slice of the source document.
func (c Chunk) Text() string {
	return c.text
}

// End returns the byte offset just past the chunk (CharOffset+CharLength).
func (c Chunk) End() int {
	return c.CharOffset + c.CharLength
}

// Document returns the chunk's source document.
func (c Chunk) Document() *Document {
	return c.doc
}
