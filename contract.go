package groundtext

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Params is the enumerated inference configuration for one batch call
// (spec.md §4.4). Parameters never get hardcoded inside the Annotator;
// they always originate from Config and are threaded down to here.
type Params struct {
	Temperature     float32
	MaxOutputTokens int
	TopP            *float32
	ResponseFormat  ResponseFormat
	Schema          map[string]any // JSON Schema, used when ResponseFormat is json and the provider supports it
	Stop            []string
}

// LLM is the abstract inference capability every provider adapter
// implements. A call dispatches len(prompts) prompts concurrently —
// never serially — and returns responses in the same order as the
// input prompts (spec.md §4.4).
type LLM interface {
	// InferBatch sends prompts to the model and returns one response
	// string per prompt, in input order.
	InferBatch(ctx context.Context, prompts []string, params Params) ([]string, error)
	// SupportsSchema reports whether this provider can enforce
	// params.Schema server-side (Gemini response_schema, OpenAI
	// response_format=json_schema). When false, the Resolver carries
	// the full burden of extracting valid JSON from free text.
	SupportsSchema() bool
}

// retryPolicy wraps a provider's single-attempt sender with the
// exponential backoff + jitter retry spec.md §4.4 requires: capped at
// 5 attempts, base 500ms. Only InferenceError{Retriable: true} is
// retried; everything else (4xx other than 429, parse failures)
// surfaces on the first attempt.
func retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.Multiplier = 2
	b.RandomizationFactor = 0.3 // jitter
	b.MaxElapsedTime = 0        // bounded by WithMaxRetries instead
	return backoff.WithMaxRetries(b, 4) // 4 retries = 5 attempts total
}

// CallWithRetry runs send once, retrying per retryPolicy when send
// returns an *InferenceError with Retriable set. Provider adapters use
// this so each implements only "do one attempt", not its own backoff
// loop.
func CallWithRetry(ctx context.Context, send func(ctx context.Context) ([]string, error)) ([]string, error) {
	var result []string

	operation := func() error {
		resp, err := send(ctx)
		if err == nil {
			result = resp
			return nil
		}

		var infErr *InferenceError
		if errors.As(err, &infErr) && infErr.Retriable {
			return err
		}

		// Non-retriable: stop the backoff loop immediately by
		// wrapping in backoff.Permanent.
		return backoff.Permanent(err)
	}

	notify := func(err error, d time.Duration) {
		_ = err
		_ = d
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(retryPolicy(), ctx), notify); err != nil {
		return nil, fmt.Errorf("groundtext: inference failed after retries: %w", err)
	}

	return result, nil
}
