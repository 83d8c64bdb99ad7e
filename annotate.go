package groundtext

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Chunker is the capability the Annotator needs from a chunking
// strategy. It is defined here, not imported from package chunk, so
// that chunk's concrete strategies (which already depend on
// groundtext for Document/Chunk) satisfy this interface structurally
// without groundtext importing chunk back.
type Chunker interface {
	Chunks(ctx context.Context, doc *Document) ([]Chunk, error)
}

// ChunkResolver is the capability the Annotator needs from a Resolver.
// *resolve.Resolver satisfies this structurally.
type ChunkResolver interface {
	Resolve(raw string) ([]Extraction, error)
}

// ChunkAligner is the capability the Annotator needs from an Aligner.
// align.Aligner satisfies this structurally.
type ChunkAligner interface {
	Align(chunk Chunk, extractions []Extraction) []Extraction
}

// Annotator orchestrates one request end to end (spec.md §4.7): chunk
// the document, build prompts once, dispatch inference with bounded
// concurrency, resolve and align each response, and collect the
// result, never silently dropping a chunk.
type Annotator struct {
	LLM      LLM
	Chunker  Chunker
	Resolver ChunkResolver
	Aligner  ChunkAligner
	Prompt   *Builder
	Config   Config
	Logger   *slog.Logger
}

// chunkOutcome holds one chunk's result, written into a slice
// positioned by the chunk's index within the batch of chunks being
// processed (not its ChunkID), so the same machinery serves both a
// full document pass and the Multi-pass Controller's arbitrary
// chunk subsets.
type chunkOutcome struct {
	extractions []Extraction
	failure     *ChunkFailure
}

// Annotate runs the full single-pass pipeline over doc and returns an
// AnnotatedDocument. A chunk's inference or resolve failure is
// recorded in PartialFailures and does not abort the request, unless
// Config.FatalOnChunkError is set, in which case the first such
// failure aborts and is returned as the call's error.
func (a *Annotator) Annotate(ctx context.Context, doc Document) (AnnotatedDocument, error) {
	cfg := a.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return AnnotatedDocument{}, err
	}
	if cfg.RequestDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestDeadline)
		defer cancel()
	}

	chunks, err := a.Chunker.Chunks(ctx, &doc)
	if err != nil {
		return AnnotatedDocument{}, &ChunkingError{Reason: "chunking document", Err: err}
	}
	if len(chunks) == 0 {
		return AnnotatedDocument{Document: doc}, nil
	}

	outcomes, err := a.runChunks(ctx, doc, chunks, cfg, 1)
	if errors.Is(ctx.Err(), context.Canceled) {
		return AnnotatedDocument{}, &CancellationError{Err: fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())}
	}
	if err != nil {
		return AnnotatedDocument{}, err
	}

	return collectOutcomes(doc, outcomes), nil
}

// runChunks dispatches inference for exactly the given chunks — the
// full document on pass 1, or the Multi-pass Controller's selected
// low-yield subset on later passes — under Config.MaxWorkers bounded
// concurrency (spec.md §4.7 step 4), and resolves+aligns each
// response, tagging every extraction with pass.
func (a *Annotator) runChunks(ctx context.Context, doc Document, chunks []Chunk, cfg Config, pass int) ([]chunkOutcome, error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	params := a.inferenceParams(cfg)
	outcomes := make([]chunkOutcome, len(chunks))

	batches := batchChunks(chunks, cfg.BatchLength)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxWorkers)

	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			return a.runBatch(gctx, doc, batch, params, cfg, pass, logger, outcomes)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// inferenceParams derives Params from Config, applying spec.md §4.4's
// proportional max_output_tokens default (len(expected_fields) × 200)
// only when the caller left MaxOutputTokens unset — an explicit
// caller value is never overridden.
func (a *Annotator) inferenceParams(cfg Config) Params {
	params := Params{
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
		ResponseFormat:  ResponseFormatJSON,
	}

	if a.Prompt != nil {
		fields := a.Prompt.ExpectedFields()
		if a.Config.MaxOutputTokens == 0 && len(fields) > 0 {
			params.MaxOutputTokens = len(fields) * 200
		}
		if a.LLM != nil && a.LLM.SupportsSchema() {
			params.Schema = extractionSchema(fields)
		}
	}

	return params
}

// extractionSchema builds the minimal JSON Schema describing the
// {"extractions": [...]} shape resolve/normalize.go accepts, so
// schema-capable providers (Gemini, OpenAI) can enforce it server-side
// instead of relying solely on prompt instructions.
func extractionSchema(expectedFields []string) map[string]any {
	classSchema := map[string]any{"type": "string"}
	if len(expectedFields) > 0 {
		classSchema["enum"] = expectedFields
	}

	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"extraction_class": classSchema,
			"extraction_text":  map[string]any{"type": "string"},
			"attributes":       map[string]any{"type": "object"},
		},
		"required": []string{"extraction_class", "extraction_text"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"extractions": map[string]any{
				"type":  "array",
				"items": item,
			},
		},
		"required": []string{"extractions"},
	}
}

// chunkBatch is size-many consecutive chunks plus the index of the
// first one within the caller's chunk slice, so runBatch can write
// results back to the right outcomes slot without relying on
// ChunkID being a contiguous 0..n index (multipass subsets aren't).
type chunkBatch struct {
	start  int
	chunks []Chunk
}

// batchChunks groups chunks into ordered batches of at most size
// chunks each; size <= 0 means one chunk per batch. Batch size
// controls provider HTTP batching only — the concurrency limiter
// (Config.MaxWorkers) independently bounds how many batches are in
// flight at once (spec.md §4.7 step 4).
func batchChunks(chunks []Chunk, size int) []chunkBatch {
	if size <= 0 {
		size = 1
	}
	batches := make([]chunkBatch, 0, (len(chunks)+size-1)/size)
	for i := 0; i < len(chunks); i += size {
		end := i + size
		if end > len(chunks) {
			end = len(chunks)
		}
		batches = append(batches, chunkBatch{start: i, chunks: chunks[i:end]})
	}
	return batches
}

// runBatch builds prompts for batch, calls the LLM once for the whole
// batch (bounded by Config.CallTimeout), and resolves+aligns each
// response, writing every chunk's outcome into
// outcomes[batch.start+i]. Returns an error only when
// Config.FatalOnChunkError is set and a chunk in this batch failed.
func (a *Annotator) runBatch(
	ctx context.Context,
	doc Document,
	batch chunkBatch,
	params Params,
	cfg Config,
	pass int,
	logger *slog.Logger,
	outcomes []chunkOutcome,
) error {
	prompts := make([]string, len(batch.chunks))
	for i, c := range batch.chunks {
		prompt, err := a.Prompt.Build(c.Text())
		if err != nil {
			return a.fail(batch.start+i, c, fmt.Errorf("building prompt: %w", err), cfg, outcomes)
		}
		prompts[i] = prompt
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if cfg.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, cfg.CallTimeout)
		defer cancel()
	}

	responses, err := a.LLM.InferBatch(callCtx, prompts, params)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			err = &TimeoutError{Scope: "call", Err: err}
		}
		for i, c := range batch.chunks {
			if ferr := a.fail(batch.start+i, c, err, cfg, outcomes); ferr != nil {
				return ferr
			}
		}
		return nil
	}

	for i, c := range batch.chunks {
		extractions, err := a.Resolver.Resolve(responses[i])
		if err != nil {
			if ferr := a.fail(batch.start+i, c, err, cfg, outcomes); ferr != nil {
				return ferr
			}
			continue
		}

		if cfg.Debug {
			dumpDebug(cfg.DebugDir, doc.ID, c.ID, pass, responses[i], logger)
		}

		aligned := a.Aligner.Align(c, extractions)
		for j := range aligned {
			aligned[j].ChunkID = c.ID
			aligned[j].Pass = pass
		}
		outcomes[batch.start+i] = chunkOutcome{extractions: aligned}
	}

	return nil
}

// fail records chunk's failure at outcomes[idx], returning a non-nil
// error only when Config.FatalOnChunkError escalates it to abort the
// whole request (spec.md §4.7).
func (a *Annotator) fail(idx int, c Chunk, err error, cfg Config, outcomes []chunkOutcome) error {
	outcomes[idx] = chunkOutcome{failure: &ChunkFailure{ChunkID: c.ID, Reason: err.Error(), Err: err}}
	if cfg.FatalOnChunkError {
		return err
	}
	return nil
}

// dumpDebug writes a chunk's raw LLM response to dir, opt-in only
// (Config.Debug, spec.md §6). Write failures are logged, not
// propagated — debug output is a diagnostic aid, never load-bearing.
func dumpDebug(dir, docID string, chunkID, pass int, raw string, logger *slog.Logger) {
	if dir == "" {
		return
	}
	name := fmt.Sprintf("%s-chunk-%d-pass-%d.json", docID, chunkID, pass)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		logger.Warn("groundtext: writing debug dump", slog.String("path", path), slog.Any("error", err))
	}
}

// collectOutcomes flattens per-chunk outcomes into one AnnotatedDocument,
// ordered by chunk_id then position within the chunk (spec.md §4.7
// step 6), with every chunk represented exactly once as either
// extractions or a PartialFailures entry (spec.md §8 "no silent drops").
func collectOutcomes(doc Document, outcomes []chunkOutcome) AnnotatedDocument {
	result := AnnotatedDocument{Document: doc}

	for _, o := range outcomes {
		if o.failure != nil {
			result.PartialFailures = append(result.PartialFailures, *o.failure)
			continue
		}
		result.Extractions = append(result.Extractions, o.extractions...)
	}

	sort.SliceStable(result.Extractions, func(i, j int) bool {
		x, y := result.Extractions[i], result.Extractions[j]
		if x.ChunkID != y.ChunkID {
			return x.ChunkID < y.ChunkID
		}
		if x.CharInterval != nil && y.CharInterval != nil {
			return x.CharInterval.Start < y.CharInterval.Start
		}
		return x.CharInterval != nil
	})

	return result
}
