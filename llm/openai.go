package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/arborly/groundtext"
)

// OpenAI implements groundtext.LLM against the OpenAI chat completions
// API, generalized from the teacher's single-message Chat method
// (llm/openai.go) to InferBatch's concurrent multi-prompt dispatch.
type OpenAI struct {
	Model  string
	client *goopenai.Client
	logger *slog.Logger
}

// NewOpenAI builds an OpenAI provider. logger may be nil.
func NewOpenAI(apiKey, model string, logger *slog.Logger) OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	return OpenAI{
		Model:  model,
		client: goopenai.NewClient(apiKey),
		logger: logger.With(slog.String("provider", "openai")),
	}
}

func (o OpenAI) SupportsSchema() bool { return true }

func (o OpenAI) InferBatch(ctx context.Context, prompts []string, params groundtext.Params) ([]string, error) {
	return dispatchBatch(ctx, prompts, func(callCtx context.Context, prompt string) (string, error) {
		return o.call(callCtx, prompt, params)
	})
}

func (o OpenAI) call(ctx context.Context, prompt string, params groundtext.Params) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: o.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: params.Temperature,
		Stop:        params.Stop,
	}
	if params.MaxOutputTokens > 0 {
		req.MaxTokens = params.MaxOutputTokens
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.ResponseFormat == groundtext.ResponseFormatJSON {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
		if len(params.Schema) > 0 {
			if raw, err := json.Marshal(params.Schema); err == nil {
				req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
					Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
					JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
						Name:   "extractions",
						Schema: json.RawMessage(raw),
					},
				}
			}
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", &groundtext.InferenceError{Provider: "openai", Retriable: false, Err: errors.New("no choices returned")}
	}

	return stripThinkTags(resp.Choices[0].Message.Content), nil
}

func classifyOpenAIError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &groundtext.InferenceError{
			Provider:  "openai",
			Status:    apiErr.HTTPStatusCode,
			Retriable: isRetriableStatus(apiErr.HTTPStatusCode),
			Err:       err,
		}
	}
	// Network-level failures (timeouts, connection resets) have no
	// status code but are worth retrying.
	return &groundtext.InferenceError{Provider: "openai", Retriable: true, Err: fmt.Errorf("request failed: %w", err)}
}
