// Command annotate is a runnable usage example wiring together the
// groundtext pipeline: chunk a document, extract with an LLM provider,
// resolve and align the results, deduplicate across chunks, and
// optionally re-extract low-yield chunks in additional passes.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/arborly/groundtext"
	"github.com/arborly/groundtext/align"
	"github.com/arborly/groundtext/chunk"
	"github.com/arborly/groundtext/llm"
	"github.com/arborly/groundtext/resolve"
	"gopkg.in/yaml.v2"
)

type fileConfig struct {
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
	LogLevel     string `yaml:"log_level"`
}

const (
	docPath    = "document.txt"
	configPath = "config.yaml"
)

func main() {
	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		return
	}

	logLevel := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	fileData, err := os.ReadFile(docPath)
	if err != nil {
		fmt.Printf("Error reading document: %v\n", err)
		return
	}
	doc := groundtext.NewDocument("", string(fileData))

	provider := llm.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)

	examples := []groundtext.Example{
		{
			Text: "Acme Corp reported revenue of $4.2 million in Q3, up 12% year over year.",
			Extractions: []groundtext.ExampleExtraction{
				{Class: "organization", Text: "Acme Corp"},
				{Class: "revenue", Text: "$4.2 million", Attributes: map[string]any{"period": "Q3"}},
				{Class: "growth_rate", Text: "12%"},
			},
		},
	}

	builder, err := groundtext.NewBuilder(
		"Extract organizations, revenue figures, and growth rates mentioned in the text.",
		examples,
	)
	if err != nil {
		fmt.Printf("Error building prompt: %v\n", err)
		return
	}

	pipelineCfg := groundtext.Config{
		Provider:           groundtext.ProviderOpenAI,
		ModelID:            cfg.OpenAIModel,
		Temperature:        0.2,
		MaxWorkers:         4,
		BatchLength:        8,
		EnableMultipass:    true,
		MultipassMaxPasses: 3,
	}

	annotator := &groundtext.Annotator{
		LLM:      provider,
		Chunker:  chunk.SemanticChunker{MaxTokens: 800},
		Resolver: resolve.NewResolver(builder.ExpectedFields()),
		Aligner:  align.Aligner{},
		Prompt:   builder,
		Config:   pipelineCfg,
		Logger:   logger,
	}

	controller := &groundtext.MultipassController{Annotator: annotator}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := time.Now()
	result, err := controller.Run(ctx, doc)
	if err != nil {
		fmt.Printf("Error annotating document: %v\n", err)
		return
	}
	logger.Info("Annotation finished", "duration in milliseconds", time.Since(now).Milliseconds())

	aggregator := groundtext.Aggregator{}
	deduped := aggregator.Aggregate(result.Extractions)

	if len(result.PartialFailures) > 0 {
		logger.Warn("Some chunks failed", "count", len(result.PartialFailures))
		for _, f := range result.PartialFailures {
			logger.Warn("Chunk failure", "chunk_id", f.ChunkID, "reason", f.Reason)
		}
	}

	out, err := json.MarshalIndent(deduped, "", "  ")
	if err != nil {
		fmt.Printf("Error encoding extractions: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

func loadConfig(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return &cfg, nil
}
