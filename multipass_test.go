package groundtext_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborly/groundtext"
)

// passAwareLLM dispatches each prompt through a caller-supplied
// function that sees both the prompt text and the call's (rounded)
// temperature, so tests can simulate a chunk yielding fewer
// extractions on pass 1 and more once reprocessed at a decayed
// temperature, without a real model.
type passAwareLLM struct {
	respond func(prompt string, roundedTemp string) string
	calls   []float32
}

func roundTemp(t float32) string {
	return fmt.Sprintf("%.2f", t)
}

func (p *passAwareLLM) SupportsSchema() bool { return false }

func (p *passAwareLLM) InferBatch(ctx context.Context, prompts []string, params groundtext.Params) ([]string, error) {
	p.calls = append(p.calls, params.Temperature)
	rt := roundTemp(params.Temperature)
	out := make([]string, len(prompts))
	for i, prompt := range prompts {
		out[i] = p.respond(prompt, rt)
	}
	return out, nil
}

func TestMultipass_MaxPassesOneEqualsSinglePass(t *testing.T) {
	llm := &passAwareLLM{respond: func(prompt, temp string) string { return "1" }}

	annotator := &groundtext.Annotator{
		LLM:      llm,
		Chunker:  fixedChunker{n: 3},
		Resolver: echoResolver{},
		Aligner:  passThroughAligner{},
		Prompt:   newTestBuilder(t),
		Config: groundtext.Config{
			Provider:           groundtext.ProviderCustom,
			Temperature:        0.5,
			EnableMultipass:    true,
			MultipassMaxPasses: 1,
		},
	}

	doc := groundtext.NewDocument("d1", "some reasonably sized document body for chunking purposes here")

	single, err := annotator.Annotate(context.Background(), doc)
	require.NoError(t, err)

	controller := &groundtext.MultipassController{Annotator: annotator}
	multi, err := controller.Run(context.Background(), doc)
	require.NoError(t, err)

	assert.ElementsMatch(t, single.Extractions, multi.Extractions)
	// Only pass 1 should ever run for either call.
	assert.Len(t, llm.calls, 2)
}

func TestMultipass_NoReextractionWhenPass1YieldIsUniform(t *testing.T) {
	llm := &passAwareLLM{respond: func(prompt, temp string) string { return "1" }}

	annotator := &groundtext.Annotator{
		LLM:      llm,
		Chunker:  fixedChunker{n: 2},
		Resolver: echoResolver{},
		Aligner:  passThroughAligner{},
		Prompt:   newTestBuilder(t),
		Config: groundtext.Config{
			Provider:           groundtext.ProviderCustom,
			Temperature:        1.0,
			EnableMultipass:    true,
			MultipassMaxPasses: 3,
		},
	}

	doc := groundtext.NewDocument("d1", "some reasonably sized document body for chunking purposes here")

	controller := &groundtext.MultipassController{Annotator: annotator}
	result, err := controller.Run(context.Background(), doc)
	require.NoError(t, err)

	assert.NotEmpty(t, result.Extractions)
	assert.Len(t, llm.calls, 1)
}

func TestMultipass_ReprocessesLowYieldChunkAtDecayedTemperature(t *testing.T) {
	// SPARSE marks the chunk that should yield fewer extractions on
	// pass 1 and more once reprocessed. Every other chunk yields a
	// constant count on every pass so only the sparse chunk's low
	// yield should trigger reselection.
	llm := &passAwareLLM{respond: func(prompt, temp string) string {
		if strings.Contains(prompt, "SPARSE") {
			if temp == roundTemp(1.0) {
				return "0"
			}
			return "4"
		}
		return "4"
	}}

	annotator := &groundtext.Annotator{
		LLM:      llm,
		Chunker:  fixedChunker{n: 4},
		Resolver: echoResolver{},
		Aligner:  passThroughAligner{},
		Prompt:   newTestBuilder(t),
		Config: groundtext.Config{
			Provider:           groundtext.ProviderCustom,
			Temperature:        1.0,
			EnableMultipass:    true,
			MultipassMaxPasses: 3,
		},
	}

	doc := groundtext.NewDocument("d1", "SPARSE chunk text..... normal chunk b..... normal chunk c..... normal chunk d")

	controller := &groundtext.MultipassController{Annotator: annotator}
	result, err := controller.Run(context.Background(), doc)
	require.NoError(t, err)

	// Pass 1 (1 call) plus at least one reprocessing pass for the
	// sparse chunk (additional calls at decayed temperatures).
	assert.Greater(t, len(llm.calls), 1)
	assert.NotEmpty(t, result.Extractions)

	seenDecayed := false
	for _, temp := range llm.calls {
		if temp != 1.0 {
			seenDecayed = true
		}
	}
	assert.True(t, seenDecayed, "expected at least one pass at a decayed temperature")
}
