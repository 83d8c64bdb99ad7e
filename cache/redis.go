package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arborly/groundtext"
)

// Redis is the distributed resolve-cache backend for multi-process
// deployments, generalized from the teacher's storage.Redis
// (storage/redis.go) from a source key-value store to a chunk-
// extraction memoization store with a TTL (the teacher's source store
// never expires; memoized extractions should, since the underlying
// prompt/model configuration can change out from under a long-lived
// cache).
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr/db and returns a Redis-backed Store.
// ttl of zero means entries never expire.
func NewRedis(addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("cache: connecting to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]groundtext.Extraction, bool, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: reading %q: %w", key, err)
	}

	var extractions []groundtext.Extraction
	if err := json.Unmarshal(raw, &extractions); err != nil {
		return nil, false, fmt.Errorf("cache: decoding %q: %w", key, err)
	}
	return extractions, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, extractions []groundtext.Extraction) error {
	raw, err := json.Marshal(extractions)
	if err != nil {
		return fmt.Errorf("cache: encoding extractions for %q: %w", key, err)
	}

	if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: writing %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
