package groundtext

import "time"

// Provider enumerates the supported inference backends (spec.md §6).
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
	ProviderGemini Provider = "gemini"
	ProviderCustom Provider = "custom"
)

// ResponseFormat hints a provider to return text or schema-enforced JSON.
type ResponseFormat string

const (
	ResponseFormatText ResponseFormat = "text"
	ResponseFormatJSON ResponseFormat = "json"
)

// Config holds the request-level tuning knobs (spec.md §6). The
// Annotator and MultipassController read the sampling, batching,
// concurrency, multipass, timeout and debug fields. MaxCharBuffer,
// FuzzyThreshold and DedupThreshold are defaulted and validated here
// but not passed on: the chunkers, the Aligner and the Aggregator take
// their sizes and thresholds from their own fields.
type Config struct {
	ModelID  string   `yaml:"modelId"`
	Provider Provider `yaml:"provider"`
	APIKey   string   `yaml:"apiKey"`
	ModelURL string   `yaml:"modelUrl"`

	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"maxOutputTokens"`

	MaxCharBuffer int `yaml:"maxCharBuffer"`
	BatchLength   int `yaml:"batchLength"`
	MaxWorkers    int `yaml:"maxWorkers"`

	EnableMultipass     bool `yaml:"enableMultipass"`
	MultipassMaxPasses  int  `yaml:"multipassMaxPasses"`
	DedupThreshold      float64 `yaml:"dedupThreshold"`
	FuzzyThreshold      float64 `yaml:"fuzzyThreshold"`

	// FatalOnChunkError switches off the default partial-failure
	// tolerance (spec.md §4.7): when true, any chunk failure aborts
	// the whole request instead of being recorded and skipped.
	FatalOnChunkError bool `yaml:"fatalOnChunkError"`

	// CallTimeout bounds a single inference call (default 60s).
	CallTimeout time.Duration `yaml:"callTimeout"`
	// RequestDeadline bounds the whole request; zero means unbounded.
	RequestDeadline time.Duration `yaml:"requestDeadline"`

	// Debug, when true, writes raw per-chunk LLM responses to
	// DebugDir. Defaults to false; never writes without opt-in.
	Debug    bool   `yaml:"debug"`
	DebugDir string `yaml:"debugDir"`
}

const (
	// DefaultMaxCharBuffer is the byte budget TokenChunker and
	// FixedChunker fall back to when their size field is zero.
	DefaultMaxCharBuffer = 4000
	DefaultBatchLength   = 8
	DefaultMaxWorkers    = 4
	DefaultCallTimeout   = 60 * time.Second
	DefaultFuzzyThreshold = 0.5
	// DefaultDedupThreshold is the Aggregator's cross-chunk dedup bar
	// (spec.md §4.8 default).
	DefaultDedupThreshold = 0.8
	DefaultMultipassMaxPasses = 3
)

// WithDefaults returns a copy of cfg with zero-valued fields replaced
// by package defaults. It never overrides a field the caller set.
func (cfg Config) WithDefaults() Config {
	if cfg.MaxCharBuffer == 0 {
		cfg.MaxCharBuffer = DefaultMaxCharBuffer
	}
	if cfg.BatchLength == 0 {
		cfg.BatchLength = DefaultBatchLength
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.CallTimeout == 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.FuzzyThreshold == 0 {
		cfg.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if cfg.DedupThreshold == 0 {
		cfg.DedupThreshold = DefaultDedupThreshold
	}
	if cfg.EnableMultipass && cfg.MultipassMaxPasses == 0 {
		cfg.MultipassMaxPasses = DefaultMultipassMaxPasses
	}
	if cfg.MaxOutputTokens == 0 {
		// A fallback, not a floor: when the caller left this unset and
		// the prompt has expected fields, the Annotator replaces it with
		// the proportional len(expected_fields) × 200 (spec.md §4.4).
		cfg.MaxOutputTokens = 800
	}
	return cfg
}

// Validate reports a *ConfigurationError for any invalid or
// conflicting setting. It does not apply defaults — call WithDefaults
// first if zero values should be filled in.
func (cfg Config) Validate() error {
	switch cfg.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderGemini, ProviderCustom:
	default:
		return &ConfigurationError{Field: "Provider", Reason: "unknown provider " + string(cfg.Provider)}
	}
	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return &ConfigurationError{Field: "Temperature", Reason: "must be within 0..2"}
	}
	if cfg.MaxWorkers < 0 {
		return &ConfigurationError{Field: "MaxWorkers", Reason: "must be >= 0"}
	}
	if cfg.DedupThreshold < 0 || cfg.DedupThreshold > 1 {
		return &ConfigurationError{Field: "DedupThreshold", Reason: "must be within 0..1"}
	}
	if cfg.FuzzyThreshold < 0 || cfg.FuzzyThreshold > 1 {
		return &ConfigurationError{Field: "FuzzyThreshold", Reason: "must be within 0..1"}
	}
	if cfg.EnableMultipass && cfg.MultipassMaxPasses < 1 {
		return &ConfigurationError{Field: "MultipassMaxPasses", Reason: "must be >= 1 when multipass is enabled"}
	}
	if cfg.Debug && cfg.DebugDir == "" {
		return &ConfigurationError{Field: "DebugDir", Reason: "required when Debug is enabled"}
	}
	return nil
}
