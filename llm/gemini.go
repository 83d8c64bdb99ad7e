package llm

import (
	"context"
	"errors"
	"log/slog"

	genai "google.golang.org/genai"

	"github.com/arborly/groundtext"
)

// Gemini implements groundtext.LLM against Google's Gemini API,
// grounded on the genai.Client construction and Models.GenerateContent
// call shape used throughout intelligencedev-manifold's google client
// (internal/llm/google/client.go), trimmed to groundtext's single-turn,
// text-in-text-out usage and generalized to InferBatch's concurrent
// dispatch.
type Gemini struct {
	Model  string
	client *genai.Client
	logger *slog.Logger
}

// NewGemini builds a Gemini provider for the given API key and model
// (e.g. "gemini-1.5-flash").
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return Gemini{}, &groundtext.ConfigurationError{Field: "Provider", Reason: "init gemini client: " + err.Error()}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Gemini{
		Model:  model,
		client: client,
		logger: logger.With(slog.String("provider", "gemini")),
	}, nil
}

// SupportsSchema reports true: Gemini's GenerationConfig accepts a
// ResponseSchema enforced server-side when ResponseMIMEType is set to
// "application/json".
func (g Gemini) SupportsSchema() bool { return true }

func (g Gemini) InferBatch(ctx context.Context, prompts []string, params groundtext.Params) ([]string, error) {
	return dispatchBatch(ctx, prompts, func(callCtx context.Context, prompt string) (string, error) {
		return g.call(callCtx, prompt, params)
	})
}

func (g Gemini) call(ctx context.Context, prompt string, params groundtext.Params) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: &params.Temperature,
	}
	if params.TopP != nil {
		cfg.TopP = params.TopP
	}
	if len(params.Stop) > 0 {
		cfg.StopSequences = params.Stop
	}
	if params.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxOutputTokens)
	}
	if params.ResponseFormat == groundtext.ResponseFormatJSON {
		cfg.ResponseMIMEType = "application/json"
		if schema := schemaFromMap(params.Schema); schema != nil {
			cfg.ResponseSchema = schema
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		return "", &groundtext.InferenceError{Provider: "gemini", Retriable: true, Err: err}
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", &groundtext.InferenceError{Provider: "gemini", Retriable: false, Err: errors.New("no candidates returned")}
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonSafety:
		return "", &groundtext.InferenceError{Provider: "gemini", Retriable: false, Err: errors.New("response blocked by safety filters")}
	case genai.FinishReasonRecitation:
		return "", &groundtext.InferenceError{Provider: "gemini", Retriable: false, Err: errors.New("response blocked due to recitation")}
	}
	if candidate.Content == nil {
		return "", &groundtext.InferenceError{Provider: "gemini", Retriable: false, Err: errors.New("empty content")}
	}

	var out string
	for _, part := range candidate.Content.Parts {
		if part != nil && !part.Thought {
			out += part.Text
		}
	}
	if out == "" {
		return "", &groundtext.InferenceError{Provider: "gemini", Retriable: false, Err: errors.New("empty response text")}
	}

	return stripThinkTags(out), nil
}

// schemaFromMap converts the flat JSON-schema-shaped map carried on
// Params into a *genai.Schema. It handles object (properties, required),
// array (items), string, number, integer and boolean nodes. Other
// keywords, such as the enum annotate.go's extractionSchema puts on
// extraction_class, are dropped; a property of unrecognized type is
// omitted. An unrecognized top-level type yields no schema, leaving
// ResponseMIMEType alone to still force JSON mode.
func schemaFromMap(m map[string]any) *genai.Schema {
	if len(m) == 0 {
		return nil
	}
	s, ok := schemaNode(m)
	if !ok {
		return nil
	}
	return s
}

func schemaNode(m map[string]any) (*genai.Schema, bool) {
	typ, _ := m["type"].(string)
	s := &genai.Schema{}
	switch typ {
	case "object":
		s.Type = genai.TypeObject
		if props, ok := m["properties"].(map[string]any); ok {
			s.Properties = make(map[string]*genai.Schema, len(props))
			for name, raw := range props {
				if pm, ok := raw.(map[string]any); ok {
					if child, ok := schemaNode(pm); ok {
						s.Properties[name] = child
					}
				}
			}
		}
		if req, ok := m["required"].([]string); ok {
			s.Required = req
		}
	case "array":
		s.Type = genai.TypeArray
		if items, ok := m["items"].(map[string]any); ok {
			if child, ok := schemaNode(items); ok {
				s.Items = child
			}
		}
	case "string":
		s.Type = genai.TypeString
	case "number":
		s.Type = genai.TypeNumber
	case "integer":
		s.Type = genai.TypeInteger
	case "boolean":
		s.Type = genai.TypeBoolean
	default:
		return nil, false
	}
	return s, true
}
