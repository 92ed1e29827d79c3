package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Defaults for generation behavior. The similarity threshold and attempt
// factor are tunables, not fixed constants; these values reject paraphrases
// while accepting distinct scenarios about the same knowledge section.
const (
	DefaultNumScenarios        = 25
	DefaultChunkSize           = 1000
	DefaultChunkOverlap        = 100
	DefaultContextChunks       = 3
	DefaultSimilarityThreshold = 0.82
	DefaultAttemptFactor       = 3
	DefaultWorkers             = 1
	DefaultAttemptTimeout      = 2 * time.Minute
	DefaultTemperature         = 0.8
	DefaultOutputPrefix        = "training_dataset"
)

// ScenarioStyle groups the tunables that shape individual scenarios and the
// acceptance policy around them
type ScenarioStyle struct {
	// Difficulties lists the per-attempt difficulty qualifiers. Empty means
	// the default basic/complex/edge_case mix.
	Difficulties []string `json:"difficulties,omitempty" yaml:"difficulties,omitempty"`

	ContextChunks       int     `json:"context_chunks,omitempty" yaml:"context_chunks,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty" yaml:"similarity_threshold,omitempty"`
	AttemptFactor       int     `json:"attempt_factor,omitempty" yaml:"attempt_factor,omitempty"`
	Workers             int     `json:"workers,omitempty" yaml:"workers,omitempty"`
	AttemptTimeoutSec   int     `json:"attempt_timeout_sec,omitempty" yaml:"attempt_timeout_sec,omitempty"`

	// FilterExpr is an optional acceptance expression evaluated per candidate
	// over: similarity, citations, prompt_words, response_words
	FilterExpr string `json:"filter_expr,omitempty" yaml:"filter_expr,omitempty"`

	IncludeRawScenarios bool   `json:"include_raw_scenarios" yaml:"include_raw_scenarios"`
	OutputPrefix        string `json:"output_prefix,omitempty" yaml:"output_prefix,omitempty"`
}

// GenerationConfig defines one generation run. It is immutable for the run's
// duration and persisted verbatim into the manifest.
type GenerationConfig struct {
	Domain           string   `json:"domain" yaml:"domain"`
	ExpertRole       string   `json:"expert_role" yaml:"expert_role"`
	TaskDescription  string   `json:"task_description" yaml:"task_description"`
	NumScenarios     int      `json:"num_scenarios" yaml:"num_scenarios"`
	KnowledgeSources []string `json:"knowledge_sources" yaml:"knowledge_sources"`

	ModelName   string  `json:"model_name,omitempty" yaml:"model_name,omitempty"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Seed        int64   `json:"seed,omitempty" yaml:"seed,omitempty"`

	ChunkSize    int `json:"chunk_size,omitempty" yaml:"chunk_size,omitempty"`
	ChunkOverlap int `json:"chunk_overlap,omitempty" yaml:"chunk_overlap,omitempty"`

	Style ScenarioStyle `json:"scenario_style" yaml:"scenario_style"`
}

// ApplyGenerationDefaults fills in unset tunables. Zero and negative values
// both fall back to the default, so a config file cannot drive the run into
// a state where counters or channel sizes go negative.
func ApplyGenerationDefaults(cfg *GenerationConfig) {
	if cfg.NumScenarios <= 0 {
		cfg.NumScenarios = DefaultNumScenarios
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 || cfg.ChunkOverlap*2 >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.Style.ContextChunks <= 0 {
		cfg.Style.ContextChunks = DefaultContextChunks
	}
	if cfg.Style.SimilarityThreshold <= 0 {
		cfg.Style.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if cfg.Style.AttemptFactor <= 0 {
		cfg.Style.AttemptFactor = DefaultAttemptFactor
	}
	if cfg.Style.Workers <= 0 {
		cfg.Style.Workers = DefaultWorkers
	}
	if cfg.Style.AttemptTimeoutSec < 0 {
		cfg.Style.AttemptTimeoutSec = 0
	}
	if cfg.Style.OutputPrefix == "" {
		cfg.Style.OutputPrefix = DefaultOutputPrefix
	}
}

// AttemptTimeout returns the per-attempt model call timeout
func (c *GenerationConfig) AttemptTimeout() time.Duration {
	if c.Style.AttemptTimeoutSec > 0 {
		return time.Duration(c.Style.AttemptTimeoutSec) * time.Second
	}
	return DefaultAttemptTimeout
}

// MaxAttempts returns the run's total attempt budget
func (c *GenerationConfig) MaxAttempts() int {
	return c.Style.AttemptFactor * c.NumScenarios
}

// LoadGenerationConfig loads a run configuration from a JSON file and applies
// defaults
func LoadGenerationConfig(path string) (*GenerationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation config: %w", err)
	}

	var cfg GenerationConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse generation config: %w", err)
	}

	ApplyGenerationDefaults(&cfg)
	return &cfg, nil
}

// SaveGenerationConfig writes a run configuration to a JSON file so a run can
// be reproduced from its manifest config alone
func SaveGenerationConfig(cfg *GenerationConfig, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal generation config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write generation config: %w", err)
	}
	return nil
}
