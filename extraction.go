package groundtext

// AlignmentStatus records how (or whether) an Extraction's text was
// located in its source chunk.
type AlignmentStatus int

const (
	// AlignmentNone means no position could be assigned.
	AlignmentNone AlignmentStatus = iota
	// AlignmentExact means source[s:e] == text (case-insensitively).
	AlignmentExact
	// AlignmentFuzzy means a window of source words scored at least
	// the fuzzy threshold against the extraction's word set.
	AlignmentFuzzy
	// AlignmentApproximate is reserved for alignments the caller
	// accepted below the configured fuzzy threshold (e.g. a
	// permissive multi-pass consensus merge); the core alignment
	// pipeline itself only ever produces Exact, Fuzzy, or None.
	AlignmentApproximate
)

func (s AlignmentStatus) String() string {
	switch s {
	case AlignmentExact:
		return "exact"
	case AlignmentFuzzy:
		return "fuzzy"
	case AlignmentApproximate:
		return "approximate"
	default:
		return "none"
	}
}

// CharInterval is a half-open [Start, End) byte range into a Document's
// Text.
type CharInterval struct {
	Start int
	End   int
}

// Extraction is one piece of structured, source-grounded information
// pulled from a chunk of text.
type Extraction struct {
	Class      string
	Text       string
	Attributes map[string]any

	// CharInterval is nil until the Aligner assigns it (or leaves it
	// nil when AlignmentStatus is AlignmentNone).
	CharInterval    *CharInterval
	AlignmentStatus AlignmentStatus
	QualityScore    float64

	Pass    int
	ChunkID int
}

// ExampleExtraction is an Extraction without offset information, used
// only to build few-shot prompts (spec.md §3, "Example").
type ExampleExtraction struct {
	Class      string
	Text       string
	Attributes map[string]any
}

// Example pairs example input text with the extractions it should
// produce, for few-shot prompt construction.
type Example struct {
	Text        string
	Extractions []ExampleExtraction
}

// ChunkFailure records why a chunk contributed no extractions to the
// final result. The Annotator never drops a chunk silently: every
// chunk that fails inference or resolution is recorded here instead.
type ChunkFailure struct {
	ChunkID int
	Reason  string
	Err     error
}

// AnnotatedDocument is a Document plus the ordered, deduplicated set of
// extractions found in it, and a record of any chunks that failed.
type AnnotatedDocument struct {
	Document        Document
	Extractions     []Extraction
	PartialFailures []ChunkFailure
}
