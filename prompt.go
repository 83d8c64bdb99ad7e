package groundtext

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

// promptExtractionOutput is the JSON shape an example's extractions
// are serialized to inside the rendered prompt, mirroring the shape
// the Resolver accepts back out (resolve/normalize.go's langextract-
// style field names) so the model sees its own expected output format.
type promptExtractionOutput struct {
	Class      string         `json:"extraction_class"`
	Text       string         `json:"extraction_text"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// promptTemplateData feeds the extraction prompt template, generalized
// from the teacher's EntityExtractionPromptData (prompt.go) from a
// fixed entity/relationship schema to an arbitrary task description
// plus arbitrary example extractions.
type promptTemplateData struct {
	TaskDescription string
	Examples        []promptExample
	Input           string
}

type promptExample struct {
	Text string
	JSON string
}

const extractionPromptTemplate = `{{.TaskDescription}}

Respond with JSON only, no commentary and no markdown code fences.

{{range $i, $example := .Examples}}
Example {{$i}}:

Text:
{{$example.Text}}

Output:
{{$example.JSON}}
{{end}}
Text:
{{.Input}}

Output:`

var promptTmpl = template.Must(template.New("extraction").Parse(extractionPromptTemplate))

// Builder renders few-shot extraction prompts (spec.md §4.3).
// NewBuilder serializes the examples' extractions to JSON and computes
// the expected fields once per request. Build executes the full
// template (task description, examples and input) on every call; no
// rendered prefix is cached between chunks.
type Builder struct {
	TaskDescription string
	Examples        []Example

	rendered       []promptExample
	expectedFields map[string]struct{}
}

// NewBuilder renders each example's extractions to the JSON shape the
// prompt template embeds and computes the expected-field set (the
// union of extraction classes across examples), both once per request
// so Build never redoes this work per chunk.
func NewBuilder(taskDescription string, examples []Example) (*Builder, error) {
	rendered := make([]promptExample, len(examples))
	fields := make(map[string]struct{})

	for i, ex := range examples {
		outputs := make([]promptExtractionOutput, len(ex.Extractions))
		for j, e := range ex.Extractions {
			outputs[j] = promptExtractionOutput{Class: e.Class, Text: e.Text, Attributes: e.Attributes}
			fields[e.Class] = struct{}{}
		}
		raw, err := json.Marshal(map[string]any{"extractions": outputs})
		if err != nil {
			return nil, fmt.Errorf("groundtext: encoding example %d: %w", i, err)
		}
		rendered[i] = promptExample{Text: ex.Text, JSON: string(raw)}
	}

	return &Builder{
		TaskDescription: taskDescription,
		Examples:        examples,
		rendered:        rendered,
		expectedFields:  fields,
	}, nil
}

// ExpectedFields returns the union of extraction classes across all
// examples, used by the Resolver's validation step (spec.md §4.5 step
// 6) and by the Annotator's proportional max_output_tokens default.
func (b *Builder) ExpectedFields() []string {
	fields := make([]string, 0, len(b.expectedFields))
	for f := range b.expectedFields {
		fields = append(fields, f)
	}
	return fields
}

// Build renders the full prompt for one chunk's input text.
func (b *Builder) Build(chunkText string) (string, error) {
	var buf bytes.Buffer
	data := promptTemplateData{
		TaskDescription: b.TaskDescription,
		Examples:        b.rendered,
		Input:           chunkText,
	}
	if err := promptTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("groundtext: rendering prompt: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n") + "\n", nil
}
