package chunk

import (
	"context"

	"github.com/arborly/groundtext"
)

const defaultSentenceMaxTokens = 200

// SentenceChunker groups consecutive sentences into chunks whose
// combined token count stays within MaxTokens (spec.md §4.2
// "sentence" strategy), a coarser fallback than TokenChunker for
// inputs where cutting mid-sentence is never acceptable.
type SentenceChunker struct {
	Counter   TokenCounter
	MaxTokens int
}

func (s SentenceChunker) Name() string { return "sentence" }

func (s SentenceChunker) Chunks(ctx context.Context, doc *groundtext.Document) ([]groundtext.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Text == "" {
		return nil, nil
	}

	counter := s.Counter
	if counter == nil {
		counter = TiktokenCounter{}
	}
	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultSentenceMaxTokens
	}

	spans := coverSpans(splitSentences(doc.Text), 0, len(doc.Text))
	groups, err := groupSpans(doc, spans, counter, maxTokens)
	if err != nil {
		return nil, err
	}
	return spansToChunks(doc, groups), nil
}
