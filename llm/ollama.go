package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/arborly/groundtext"
)

// Ollama implements groundtext.LLM against a local or remote Ollama
// server, generalized from the teacher's single-message Chat method
// (llm/ollama.go) to InferBatch's concurrent dispatch.
type Ollama struct {
	Model  string
	client *api.Client
	logger *slog.Logger
}

// NewOllama builds an Ollama provider. host must be a valid server URL.
func NewOllama(host, model string, logger *slog.Logger) (Ollama, error) {
	u, err := url.Parse(host)
	if err != nil {
		return Ollama{}, &groundtext.ConfigurationError{Field: "ModelURL", Reason: "invalid ollama host: " + err.Error()}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Ollama{
		Model:  model,
		client: api.NewClient(u, &http.Client{}),
		logger: logger.With(slog.String("provider", "ollama")),
	}, nil
}

// SupportsSchema reports true: Ollama's /api/chat accepts a "format"
// field carrying a JSON schema for supporting model families.
func (o Ollama) SupportsSchema() bool { return true }

func (o Ollama) InferBatch(ctx context.Context, prompts []string, params groundtext.Params) ([]string, error) {
	return dispatchBatch(ctx, prompts, func(callCtx context.Context, prompt string) (string, error) {
		return o.call(callCtx, prompt, params)
	})
}

func (o Ollama) call(ctx context.Context, prompt string, params groundtext.Params) (string, error) {
	stream := false
	req := api.ChatRequest{
		Model: o.Model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
	}

	opts := map[string]any{"temperature": params.Temperature}
	if params.TopP != nil {
		opts["top_p"] = *params.TopP
	}
	if len(params.Stop) > 0 {
		opts["stop"] = params.Stop
	}
	req.Options = opts

	if params.ResponseFormat == groundtext.ResponseFormatJSON {
		req.Format = jsonFormat(params.Schema)
	}

	var result strings.Builder
	err := o.client.Chat(ctx, &req, func(res api.ChatResponse) error {
		result.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		return "", &groundtext.InferenceError{Provider: "ollama", Retriable: true, Err: err}
	}
	if result.Len() == 0 {
		return "", &groundtext.InferenceError{Provider: "ollama", Retriable: false, Err: errors.New("empty response")}
	}

	return stripThinkTags(result.String()), nil
}

// jsonFormat encodes params.Schema as the raw JSON bytes
// api.ChatRequest.Format expects, falling back to the bare "json" mode
// when no schema was supplied or it doesn't marshal.
func jsonFormat(schema map[string]any) json.RawMessage {
	if len(schema) == 0 {
		return json.RawMessage(`"json"`)
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`"json"`)
	}
	return b
}
