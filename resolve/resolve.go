// Package resolve turns a raw LLM response string into validated
// groundtext.Extraction values: strip any markdown fencing, locate the
// JSON payload inside surrounding prose, repair common syntax errors,
// parse it, normalize whichever of the three accepted shapes the model
// used, and coerce attribute values to typed data where a type is
// recognizable (spec.md §4.5). Resolve never sets CharInterval or
// AlignmentStatus on the extractions it returns — that's the align
// package's job, run on Resolve's output.
package resolve

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/arborly/groundtext"
)

// Resolver holds the configuration the resolution pipeline needs: the
// set of extraction classes the caller expects (spec.md §4.5 step 6),
// and the coercion chain.
type Resolver struct {
	// ExpectedFields is the set of extraction classes the caller
	// expects — the union of extraction classes across the prompt's
	// few-shot examples (see groundtext.Builder.ExpectedFields in prompt.go).
	// When non-empty, Resolve drops any extraction whose Class falls
	// outside this set, unless Permissive is set, and logs a warning
	// for any expected class that produced zero extractions.
	ExpectedFields []string

	// Permissive disables class filtering: extractions with an
	// unexpected class are kept instead of dropped. Missing-class
	// reporting still runs regardless.
	Permissive bool

	validate *validator.Validate
	logger   *slog.Logger
}

// NewResolver builds a Resolver. A zero-value Resolver is also usable.
func NewResolver(expectedFields []string) *Resolver {
	return &Resolver{ExpectedFields: expectedFields, validate: validator.New()}
}

func (r *Resolver) log() *slog.Logger {
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r.logger
}

// rawExtraction is the shape of one item after JSON normalization,
// validated before it's promoted to a groundtext.Extraction.
type rawExtraction struct {
	Class      string         `validate:"required"`
	Text       string         `validate:"required"`
	Attributes map[string]any `validate:"-"`
}

// Resolve runs the full pipeline against one chunk's raw model output.
// A malformed or empty response is reported as a *groundtext.ResolveError
// rather than a generic error, so callers can decide whether to treat
// it as a partial chunk failure (spec.md §4.7) instead of aborting the
// whole request.
func (r *Resolver) Resolve(raw string) ([]groundtext.Extraction, error) {
	if r.validate == nil {
		r.validate = validator.New()
	}

	cleaned := cleanup(raw)
	if cleaned == "" {
		return nil, &groundtext.ResolveError{Kind: groundtext.ResolveEmptyResponse, Raw: raw}
	}

	located := locateJSON(cleaned)
	if located == "" {
		located = cleaned
	}

	parsed, err := parseJSON(located)
	if err != nil {
		return nil, &groundtext.ResolveError{Kind: groundtext.ResolveMalformedJSON, Raw: truncate(raw, 200)}
	}

	items, err := normalize(parsed)
	if err != nil {
		return nil, &groundtext.ResolveError{Kind: groundtext.ResolveSchemaViolation, Raw: truncate(raw, 200)}
	}

	expected := make(map[string]struct{}, len(r.ExpectedFields))
	for _, f := range r.ExpectedFields {
		expected[f] = struct{}{}
	}

	extractions := make([]groundtext.Extraction, 0, len(items))
	seenClasses := make(map[string]struct{}, len(expected))
	for _, item := range items {
		re := rawExtraction{Class: item.Class, Text: item.Text, Attributes: item.Attributes}
		if err := r.validate.Struct(&re); err != nil {
			continue // a malformed individual item is dropped, not fatal to the chunk
		}
		if len(expected) > 0 && !r.Permissive {
			if _, ok := expected[re.Class]; !ok {
				continue // out-of-schema class, dropped per spec.md §4.5 step 6
			}
		}
		seenClasses[re.Class] = struct{}{}

		extractions = append(extractions, groundtext.Extraction{
			Class:           re.Class,
			Text:            re.Text,
			Attributes:      coerceExtraction(re.Attributes, re.Text),
			AlignmentStatus: groundtext.AlignmentNone,
		})
	}

	for class := range expected {
		if _, ok := seenClasses[class]; !ok {
			r.log().Warn("groundtext/resolve: expected class produced no extractions", slog.String("class", class))
		}
	}

	if len(extractions) == 0 {
		return nil, &groundtext.ResolveError{Kind: groundtext.ResolveSchemaViolation, Raw: truncate(raw, 200)}
	}

	return extractions, nil
}

// coerceExtraction coerces attribute values via Coerce and, advisorily,
// the extraction's own text (spec.md §4.5 step 5 applies coercion to
// "each extraction's extraction_text and ... scalar attribute values").
// A text match is recorded under reserved attribute keys rather than
// overwriting Text, keeping the original string intact.
func coerceExtraction(attrs map[string]any, text string) map[string]any {
	out := Coerce(attrs)
	k, parsed, ok := coerceString("extraction_text", text)
	if !ok {
		return out
	}
	if out == nil {
		out = make(map[string]any, 2)
	}
	out["extraction_text_type"] = string(k)
	out["extraction_text_value"] = parsed
	return out
}

// cleanup strips the markdown code fences models routinely wrap JSON
// in and trims surrounding whitespace.
func cleanup(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```JSON")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// parseJSON unmarshals s into a generic value, repairing it first if a
// direct parse fails.
func parseJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v, nil
	}

	repaired, err := repairJSON(s)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(repaired), &v); err != nil {
		return nil, err
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
