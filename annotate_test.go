package groundtext_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborly/groundtext"
)

// fakeLLM returns one canned response per prompt, optionally erroring
// for prompts its responses function rejects, and counts concurrent in-flight calls so
// tests can assert the worker-pool limit is respected.
type fakeLLM struct {
	responses func(prompt string) (string, error)

	inFlight int32
	maxSeen  int32
}

func (f *fakeLLM) SupportsSchema() bool { return false }

func (f *fakeLLM) InferBatch(ctx context.Context, prompts []string, params groundtext.Params) ([]string, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if cur <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, cur) {
			break
		}
	}

	out := make([]string, len(prompts))
	for i, p := range prompts {
		resp, err := f.responses(p)
		if err != nil {
			return nil, err
		}
		out[i] = resp
	}
	return out, nil
}

// fixedChunker splits a document into n equal-ish byte windows.
type fixedChunker struct{ n int }

func (c fixedChunker) Chunks(ctx context.Context, doc *groundtext.Document) ([]groundtext.Chunk, error) {
	text := doc.Text
	if len(text) == 0 || c.n <= 0 {
		return nil, nil
	}
	size := (len(text) + c.n - 1) / c.n
	var chunks []groundtext.Chunk
	id := 0
	for pos := 0; pos < len(text); pos += size {
		end := pos + size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, groundtext.NewChunk(doc, id, pos, end-pos))
		id++
	}
	return chunks, nil
}

// echoResolver turns a raw response of the form "N" into N distinct
// extractions, so each chunk's yield is directly controllable by the
// test's fakeLLM responses.
type echoResolver struct{}

func (echoResolver) Resolve(raw string) ([]groundtext.Extraction, error) {
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
		return nil, err
	}
	extractions := make([]groundtext.Extraction, n)
	for i := range extractions {
		extractions[i] = groundtext.Extraction{Class: "x", Text: fmt.Sprintf("item-%d", i)}
	}
	return extractions, nil
}

// passThroughAligner assigns no interval; it exists only to satisfy
// the ChunkAligner interface for tests that don't care about
// alignment.
type passThroughAligner struct{}

func (passThroughAligner) Align(chunk groundtext.Chunk, extractions []groundtext.Extraction) []groundtext.Extraction {
	return extractions
}

func newTestBuilder(t *testing.T) *groundtext.Builder {
	t.Helper()
	b, err := groundtext.NewBuilder("extract items", nil)
	require.NoError(t, err)
	return b
}

func TestAnnotate_NoChunkLostAcrossManyBatchesAndWorkers(t *testing.T) {
	const numChunks = 25

	llm := &fakeLLM{responses: func(prompt string) (string, error) {
		return "1", nil
	}}

	annotator := &groundtext.Annotator{
		LLM:      llm,
		Chunker:  fixedChunker{n: numChunks},
		Resolver: echoResolver{},
		Aligner:  passThroughAligner{},
		Prompt:   newTestBuilder(t),
		Config: groundtext.Config{
			Provider:    groundtext.ProviderCustom,
			MaxWorkers:  10,
			BatchLength: 3,
		},
	}

	doc := groundtext.NewDocument("d1", fmt.Sprintf("%0500d", 0))
	result, err := annotator.Annotate(context.Background(), doc)
	require.NoError(t, err)

	assert.Empty(t, result.PartialFailures)
	assert.Len(t, result.Extractions, numChunks)
	assert.LessOrEqual(t, llm.maxSeen, int32(10))
}

func TestAnnotate_ChunkFailureIsRecordedNotFatalByDefault(t *testing.T) {
	llm := &fakeLLM{responses: func(prompt string) (string, error) {
		if strings.Contains(prompt, "FAILHERE") {
			return "not-a-number", nil
		}
		return "2", nil
	}}

	annotator := &groundtext.Annotator{
		LLM:      llm,
		Chunker:  fixedChunker{n: 4},
		Resolver: echoResolver{},
		Aligner:  passThroughAligner{},
		Prompt:   newTestBuilder(t),
		Config: groundtext.Config{
			Provider:    groundtext.ProviderCustom,
			MaxWorkers:  2,
			BatchLength: 1,
		},
	}

	doc := groundtext.NewDocument("d1", "FAILHERE plus some reasonably long piece of source text to chunk up")
	result, err := annotator.Annotate(context.Background(), doc)
	require.NoError(t, err)

	assert.NotEmpty(t, result.Extractions)
	require.Len(t, result.PartialFailures, 1)
}

func TestAnnotate_FatalOnChunkErrorAbortsRequest(t *testing.T) {
	llm := &fakeLLM{responses: func(prompt string) (string, error) {
		return "", fmt.Errorf("always fails")
	}}

	annotator := &groundtext.Annotator{
		LLM:      llm,
		Chunker:  fixedChunker{n: 2},
		Resolver: echoResolver{},
		Aligner:  passThroughAligner{},
		Prompt:   newTestBuilder(t),
		Config: groundtext.Config{
			Provider:          groundtext.ProviderCustom,
			FatalOnChunkError: true,
		},
	}

	doc := groundtext.NewDocument("d1", "some source text")
	_, err := annotator.Annotate(context.Background(), doc)
	assert.Error(t, err)
}
