package llm

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/arborly/groundtext"
)

// dispatchBatch runs call once per prompt, all concurrently (never
// serially — spec.md §4.4), retrying each prompt's call independently
// through groundtext.CallWithRetry so one rate-limited prompt doesn't
// force a retry of prompts that already succeeded.
func dispatchBatch(ctx context.Context, prompts []string, call func(ctx context.Context, prompt string) (string, error)) ([]string, error) {
	results := make([]string, len(prompts))

	g, gctx := errgroup.WithContext(ctx)
	for i, prompt := range prompts {
		g.Go(func() error {
			out, err := groundtext.CallWithRetry(gctx, func(callCtx context.Context) ([]string, error) {
				resp, err := call(callCtx, prompt)
				if err != nil {
					return nil, err
				}
				return []string{resp}, nil
			})
			if err != nil {
				return err
			}
			results[i] = out[0]
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
