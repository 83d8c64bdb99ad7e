// Package cache memoizes resolve+align output per chunk (spec.md §10.2:
// additive, disabled-by-default resolve cache) and selects few-shot
// examples by similarity (the chromem-backed example selector),
// generalizing the teacher's storage package (storage/bolt.go,
// storage/redis.go, storage/chromem.go) from go-light-rag's
// source/entity/relationship key-value and vector stores to this
// module's chunk-keyed resolve cache and example nearest-neighbor
// lookup.
package cache

import (
	"context"
	"encoding/json"

	"github.com/cespare/xxhash/v2"

	"github.com/arborly/groundtext"
)

// Store is the resolve-cache contract: memoize and recall the
// extractions produced for a given chunk under a given prompt and
// parameter set. Both backends (Bolt, Redis) implement it.
type Store interface {
	// Get returns the cached extractions for key, and whether the key
	// was present.
	Get(ctx context.Context, key string) ([]groundtext.Extraction, bool, error)
	// Set memoizes extractions under key.
	Set(ctx context.Context, key string, extractions []groundtext.Extraction) error
	// Close releases any underlying connection or file handle.
	Close() error
}

// Key derives the resolve-cache key spec.md §10.2 specifies:
// chunk text plus prompt hash plus parameter hash, so identical chunks
// re-run under identical prompts/params hit the cache, and any change
// to either invalidates it.
func Key(chunkText, promptHash, paramsHash string) string {
	h := xxhash.New()
	_, _ = h.WriteString(chunkText)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(promptHash)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(paramsHash)
	return itoa36(h.Sum64())
}

// ParamsHash collapses an inference Params value into a short stable
// string for use in Key, so a temperature or schema change naturally
// produces a different cache key without every caller needing to
// compose one by hand.
func ParamsHash(params groundtext.Params) string {
	b, err := json.Marshal(params)
	if err != nil {
		return "unhashable"
	}
	return itoa36(xxhash.Sum64(b))
}

func itoa36(v uint64) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if v == 0 {
		return "0"
	}
	var buf [13]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v%36]
		v /= 36
	}
	return string(buf[i:])
}
