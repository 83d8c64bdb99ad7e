package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arborly/groundtext"
)

// Custom implements groundtext.LLM against any OpenAI-compatible
// chat-completions endpoint (spec.md §6 ProviderCustom), generalized
// from the teacher's OpenAICompat (llm/openaicompat.go) to InferBatch's
// concurrent dispatch and the shared Params struct.
type Custom struct {
	BaseURL string
	Model   string

	client *http.Client
	logger *slog.Logger
}

// NewCustom builds a Custom provider pointed at baseURL (trailing
// slash optional), e.g. "http://localhost:8000/v1".
func NewCustom(baseURL, model string, logger *slog.Logger) Custom {
	if logger == nil {
		logger = slog.Default()
	}
	return Custom{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Model:   model,
		client:  &http.Client{Timeout: 110 * time.Second},
		logger:  logger.With(slog.String("provider", "custom")),
	}
}

// SupportsSchema reports false: an arbitrary OpenAI-compatible server
// is not guaranteed to support response_format=json_schema, so the
// Resolver carries the full burden of extracting valid JSON.
func (c Custom) SupportsSchema() bool { return false }

func (c Custom) InferBatch(ctx context.Context, prompts []string, params groundtext.Params) ([]string, error) {
	return dispatchBatch(ctx, prompts, func(callCtx context.Context, prompt string) (string, error) {
		return c.call(callCtx, prompt, params)
	})
}

type customChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type customChatRequest struct {
	Model       string              `json:"model"`
	Messages    []customChatMessage `json:"messages"`
	Temperature float32             `json:"temperature,omitempty"`
	TopP        *float32            `json:"top_p,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type customChatResponse struct {
	Choices []struct {
		Message customChatMessage `json:"message"`
	} `json:"choices"`
}

func (c Custom) call(ctx context.Context, prompt string, params groundtext.Params) (string, error) {
	req := customChatRequest{
		Model: c.Model,
		Messages: []customChatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: params.Temperature,
		TopP:        params.TopP,
		Stop:        params.Stop,
		MaxTokens:   params.MaxOutputTokens,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("llm: marshaling custom request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: building custom request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &groundtext.InferenceError{Provider: "custom", Retriable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", &groundtext.InferenceError{
			Provider:  "custom",
			Status:    resp.StatusCode,
			Retriable: isRetriableStatus(resp.StatusCode),
			Err:       fmt.Errorf("status %d: %s", resp.StatusCode, respBody),
		}
	}

	var chatResp customChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &groundtext.InferenceError{Provider: "custom", Retriable: false, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &groundtext.InferenceError{Provider: "custom", Retriable: false, Err: errors.New("no choices returned")}
	}

	return stripMarkdownFenceLines(stripThinkTags(chatResp.Choices[0].Message.Content)), nil
}
