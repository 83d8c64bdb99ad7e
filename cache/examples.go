package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/arborly/groundtext"
)

// ExampleSelector narrows a large caller-supplied few-shot example set
// down to the K examples most similar to the chunk being annotated,
// generalized from the teacher's storage.Chromem (storage/chromem.go)
// from entity/relationship vector collections to a single example
// collection keyed by the example's source text.
//
// When no embedding function is supplied, Select returns every example
// unchanged (the spec.md default of "use all examples") rather than
// erroring, since nearest-neighbor narrowing is a pure optimization,
// never a correctness requirement.
type ExampleSelector struct {
	coll *chromem.Collection
	topK int
}

// NewExampleSelector builds a selector over examples, persisting
// vectors at dbPath. embeddingFunc may be nil, in which case Select
// always returns the full example set.
func NewExampleSelector(dbPath string, topK int, embeddingFunc chromem.EmbeddingFunc) (*ExampleSelector, error) {
	if embeddingFunc == nil {
		return &ExampleSelector{topK: topK}, nil
	}

	db, err := chromem.NewPersistentDB(dbPath, false)
	if err != nil {
		return nil, fmt.Errorf("cache: creating chromem db: %w", err)
	}

	coll, err := db.GetOrCreateCollection("examples", nil, embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("cache: creating examples collection: %w", err)
	}

	sel := &ExampleSelector{coll: coll, topK: topK}
	return sel, nil
}

// Index adds examples to the vector store, keyed by their source text
// so duplicate examples overwrite rather than accumulate.
func (s *ExampleSelector) Index(examples []groundtext.Example) error {
	if s.coll == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, ex := range examples {
		doc := chromem.Document{
			ID:      uuid.NewSHA1(uuid.NameSpaceOID, []byte(ex.Text)).String(),
			Content: ex.Text,
		}
		if err := s.coll.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("cache: indexing example: %w", err)
		}
	}
	return nil
}

// Select returns the examples whose text is most similar to chunkText.
// When the selector has no embedding function configured, or fewer
// examples exist than topK, it falls back to returning all of them.
func (s *ExampleSelector) Select(examples []groundtext.Example, chunkText string) ([]groundtext.Example, error) {
	if s.coll == nil || s.topK <= 0 || len(examples) <= s.topK {
		return examples, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := s.coll.Query(ctx, chunkText, s.topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("cache: querying examples: %w", err)
	}

	byText := make(map[string]groundtext.Example, len(examples))
	for _, ex := range examples {
		byText[ex.Text] = ex
	}

	selected := make([]groundtext.Example, 0, len(results))
	for _, r := range results {
		if ex, ok := byText[r.Content]; ok {
			selected = append(selected, ex)
		}
	}
	if len(selected) == 0 {
		return examples, nil
	}
	return selected, nil
}
