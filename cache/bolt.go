package cache

import (
	"context"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/arborly/groundtext"
)

var resolveBucket = []byte("resolve_cache")

// Bolt is the local, single-process resolve-cache backend, generalized
// from the teacher's storage.Bolt (storage/bolt.go) from a source
// key-value store to a chunk-extraction memoization store: same
// bucket-per-concern layout and CreateBucketIfNotExists-on-open idiom,
// new bucket name and value shape (JSON-encoded []groundtext.Extraction
// instead of a raw source string).
type Bolt struct {
	db *bolt.DB
}

// NewBolt opens (creating if needed) a bbolt database at path for the
// resolve cache.
func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: opening bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resolveBucket)
		return err
	}); err != nil {
		return nil, fmt.Errorf("cache: creating resolve bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Get(_ context.Context, key string) ([]groundtext.Extraction, bool, error) {
	var (
		extractions []groundtext.Extraction
		found       bool
	)

	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(resolveBucket).Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &extractions)
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache: reading %q: %w", key, err)
	}
	return extractions, found, nil
}

func (b *Bolt) Set(_ context.Context, key string, extractions []groundtext.Extraction) error {
	raw, err := json.Marshal(extractions)
	if err != nil {
		return fmt.Errorf("cache: encoding extractions for %q: %w", key, err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resolveBucket).Put([]byte(key), raw)
	})
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
