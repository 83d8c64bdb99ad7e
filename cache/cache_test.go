package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/arborly/groundtext"
)

func sampleExtractions() []groundtext.Extraction {
	return []groundtext.Extraction{
		{
			Class:           "amount",
			Text:            "$1,200",
			CharInterval:    &groundtext.CharInterval{Start: 10, End: 16},
			AlignmentStatus: groundtext.AlignmentExact,
			QualityScore:    0.9,
		},
	}
}

func TestKey_IsDeterministicAndSensitiveToEveryInput(t *testing.T) {
	base := Key("chunk text", "prompt-hash", "params-hash")

	require.Equal(t, base, Key("chunk text", "prompt-hash", "params-hash"))
	require.NotEqual(t, base, Key("different text", "prompt-hash", "params-hash"))
	require.NotEqual(t, base, Key("chunk text", "other-prompt", "params-hash"))
	require.NotEqual(t, base, Key("chunk text", "prompt-hash", "other-params"))
}

func TestParamsHash_DiffersOnTemperatureChange(t *testing.T) {
	a := ParamsHash(groundtext.Params{Temperature: 0.1})
	b := ParamsHash(groundtext.Params{Temperature: 0.2})
	require.NotEqual(t, a, b)
}

func TestBolt_SetThenGetRoundTrips(t *testing.T) {
	store, err := NewBolt(filepath.Join(t.TempDir(), "resolve.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	key := Key("chunk", "p", "q")

	_, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, found)

	want := sampleExtractions()
	require.NoError(t, store.Set(ctx, key, want))

	got, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want, got)
}

func TestRedis_SetThenGetRoundTrips(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedis(mr.Addr(), "", 0, 0)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	key := Key("chunk", "p", "q")

	_, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.False(t, found)

	want := sampleExtractions()
	require.NoError(t, store.Set(ctx, key, want))

	got, found, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, want, got)
}

func TestExampleSelector_WithoutEmbedderReturnsAllExamples(t *testing.T) {
	sel, err := NewExampleSelector(filepath.Join(t.TempDir(), "examples.db"), 2, nil)
	require.NoError(t, err)

	examples := []groundtext.Example{
		{Text: "example one"},
		{Text: "example two"},
		{Text: "example three"},
	}

	got, err := sel.Select(examples, "some chunk text")
	require.NoError(t, err)
	require.Equal(t, examples, got)
}

func TestExampleSelector_FewerExamplesThanTopKReturnsAllWithoutQuerying(t *testing.T) {
	sel := &ExampleSelector{topK: 5}

	examples := []groundtext.Example{{Text: "only one"}}
	got, err := sel.Select(examples, "chunk")
	require.NoError(t, err)
	require.Equal(t, examples, got)
}
