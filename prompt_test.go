package groundtext_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arborly/groundtext"
)

func TestNewBuilder_ExpectedFieldsIsUnionOfExampleClasses(t *testing.T) {
	examples := []groundtext.Example{
		{
			Text: "Acme reported $4M in revenue.",
			Extractions: []groundtext.ExampleExtraction{
				{Class: "organization", Text: "Acme"},
				{Class: "revenue", Text: "$4M"},
			},
		},
		{
			Text: "Widgets Inc grew 8%.",
			Extractions: []groundtext.ExampleExtraction{
				{Class: "organization", Text: "Widgets Inc"},
				{Class: "growth_rate", Text: "8%"},
			},
		},
	}

	b, err := groundtext.NewBuilder("extract things", examples)
	require.NoError(t, err)

	fields := b.ExpectedFields()
	assert.ElementsMatch(t, []string{"organization", "revenue", "growth_rate"}, fields)
}

func TestBuilder_BuildEmbedsTaskDescriptionExamplesAndInput(t *testing.T) {
	examples := []groundtext.Example{
		{
			Text: "Acme reported $4M in revenue.",
			Extractions: []groundtext.ExampleExtraction{
				{Class: "organization", Text: "Acme"},
			},
		},
	}

	b, err := groundtext.NewBuilder("extract organizations", examples)
	require.NoError(t, err)

	prompt, err := b.Build("Globex earned $9M last year.")
	require.NoError(t, err)

	assert.Contains(t, prompt, "extract organizations")
	assert.Contains(t, prompt, "Acme reported $4M in revenue.")
	assert.Contains(t, prompt, "organization")
	assert.Contains(t, prompt, "Globex earned $9M last year.")
}

func TestBuilder_BuildDoesNotReRenderExamplesPerChunk(t *testing.T) {
	examples := []groundtext.Example{
		{Text: "one", Extractions: []groundtext.ExampleExtraction{{Class: "x", Text: "one"}}},
	}
	b, err := groundtext.NewBuilder("task", examples)
	require.NoError(t, err)

	first, err := b.Build("chunk A")
	require.NoError(t, err)
	second, err := b.Build("chunk B")
	require.NoError(t, err)

	// Both renders must share the identical example block; only the
	// trailing input text differs.
	normalizedFirst := strings.Replace(first, "chunk A", "<input>", 1)
	normalizedSecond := strings.Replace(second, "chunk B", "<input>", 1)
	assert.Equal(t, normalizedFirst, normalizedSecond)
}
