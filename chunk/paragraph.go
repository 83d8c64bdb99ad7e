package chunk

import (
	"context"

	"github.com/arborly/groundtext"
)

const defaultParagraphMaxTokens = 800

// ParagraphChunker groups consecutive paragraphs into chunks whose
// combined token count stays within MaxTokens (spec.md §4.2
// "paragraph" strategy). A paragraph that alone exceeds the budget is
// re-split by sentence rather than emitted oversized, since a
// paragraph break is a weaker signal than the budget itself.
type ParagraphChunker struct {
	Counter           TokenCounter
	MaxTokens         int
	SentenceMaxTokens int
}

func (p ParagraphChunker) Name() string { return "paragraph" }

func (p ParagraphChunker) Chunks(ctx context.Context, doc *groundtext.Document) ([]groundtext.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc.Text == "" {
		return nil, nil
	}

	counter := p.Counter
	if counter == nil {
		counter = TiktokenCounter{}
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultParagraphMaxTokens
	}
	sentenceMaxTokens := p.SentenceMaxTokens
	if sentenceMaxTokens <= 0 {
		sentenceMaxTokens = maxTokens
	}

	paragraphs := coverSpans(splitParagraphs(doc.Text), 0, len(doc.Text))
	if len(paragraphs) == 0 {
		paragraphs = []span{{0, len(doc.Text)}}
	}

	counts := make([]int, len(paragraphs))
	for i, sp := range paragraphs {
		n, err := counter.Count(doc.Text[sp.start:sp.end])
		if err != nil {
			return nil, &groundtext.ChunkingError{Reason: "counting paragraph tokens", Err: err}
		}
		counts[i] = n
	}

	// Resolve each paragraph independently: an oversized one becomes
	// several sentence-grouped spans, a normal one stays a single
	// candidate span. groupSpans then merges the resulting candidates
	// up to maxTokens, same as the flat sentence chunker.
	var candidates []span
	for i, sp := range paragraphs {
		if counts[i] <= maxTokens {
			candidates = append(candidates, sp)
			continue
		}
		subSpans := splitSentences(doc.Text[sp.start:sp.end])
		for k := range subSpans {
			subSpans[k].start += sp.start
			subSpans[k].end += sp.start
		}
		subSpans = coverSpans(subSpans, sp.start, sp.end)
		if len(subSpans) == 0 {
			subSpans = []span{sp}
		}
		subGroups, err := groupSpans(doc, subSpans, counter, sentenceMaxTokens)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, subGroups...)
	}

	groups, err := groupSpans(doc, candidates, counter, maxTokens)
	if err != nil {
		return nil, err
	}
	return spansToChunks(doc, groups), nil
}
