// Package llm adapts the provider-agnostic groundtext.LLM contract to
// four concrete backends (spec.md §6: OpenAI, Ollama, Gemini, Custom),
// each dispatching every prompt in a batch concurrently and retrying
// transient failures through groundtext.CallWithRetry.
package llm

import (
	"net/http"
	"regexp"
	"strings"
)

var thinkTagPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// stripThinkTags removes <think>...</think> reasoning traces some
// models (notably local reasoning models served through Ollama) emit
// ahead of their actual answer.
func stripThinkTags(input string) string {
	return thinkTagPattern.ReplaceAllString(input, "")
}

// stripMarkdownFenceLines drops any line that is just a ``` fence
// marker, a cheaper first pass than resolve's cleanup step for
// providers that tend to wrap commentary around the JSON payload in
// fenced code blocks spanning multiple lines.
func stripMarkdownFenceLines(input string) string {
	lines := strings.Split(input, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "```") {
			filtered = append(filtered, line)
		}
	}
	return strings.Join(filtered, "\n")
}

// isRetriableStatus reports whether an HTTP status from a provider
// should be retried: 429 (rate limit) and every 5xx. Other 4xx codes
// are the caller's fault (bad request, bad auth, not found), and
// retrying them would only waste the backoff budget.
func isRetriableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
