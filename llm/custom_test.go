package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborly/groundtext"
)

func TestCustom_InferBatchReturnsResponsesInOrder(t *testing.T) {
	var requests []customChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req customChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		resp := customChatResponse{}
		resp.Choices = []struct {
			Message customChatMessage `json:"message"`
		}{{Message: customChatMessage{Role: "assistant", Content: req.Messages[0].Content + "-reply"}}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	c := NewCustom(srv.URL, "test-model", nil)
	out, err := c.InferBatch(context.Background(), []string{"one", "two", "three"}, groundtext.Params{})
	require.NoError(t, err)

	require.Len(t, out, 3)
	assert.Equal(t, "one-reply", out[0])
	assert.Equal(t, "two-reply", out[1])
	assert.Equal(t, "three-reply", out[2])
}

func TestCustom_NonOKStatusReturnsInferenceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("rate limited"))
	}))
	t.Cleanup(srv.Close)

	c := NewCustom(srv.URL, "test-model", nil)
	_, err := c.InferBatch(context.Background(), []string{"hi"}, groundtext.Params{})
	require.Error(t, err)

	var infErr *groundtext.InferenceError
	require.ErrorAs(t, err, &infErr)
	assert.True(t, infErr.Retriable)
	assert.Equal(t, http.StatusTooManyRequests, infErr.Status)
}

func TestCustom_StripsMarkdownFenceAndThinkTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := customChatResponse{}
		resp.Choices = []struct {
			Message customChatMessage `json:"message"`
		}{{Message: customChatMessage{
			Role:    "assistant",
			Content: "<think>reasoning</think>```json\n{\"extractions\":[]}\n```",
		}}}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)

	c := NewCustom(srv.URL, "test-model", nil)
	out, err := c.InferBatch(context.Background(), []string{"hi"}, groundtext.Params{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, `{"extractions":[]}`, out[0])
}
