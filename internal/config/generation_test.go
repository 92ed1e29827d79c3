package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyGenerationDefaults(t *testing.T) {
	cfg := &GenerationConfig{
		Domain:          "healthcare compliance",
		ExpertRole:      "compliance officer",
		TaskDescription: "evaluate scenarios",
	}
	ApplyGenerationDefaults(cfg)

	if cfg.NumScenarios != DefaultNumScenarios {
		t.Errorf("NumScenarios = %d, expected %d", cfg.NumScenarios, DefaultNumScenarios)
	}
	if cfg.ChunkSize != DefaultChunkSize || cfg.ChunkOverlap != DefaultChunkOverlap {
		t.Errorf("Chunking defaults wrong: size=%d overlap=%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.Style.SimilarityThreshold != DefaultSimilarityThreshold {
		t.Errorf("SimilarityThreshold = %f, expected %f", cfg.Style.SimilarityThreshold, DefaultSimilarityThreshold)
	}
	if cfg.Style.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, expected %d", cfg.Style.Workers, DefaultWorkers)
	}
	if cfg.Style.OutputPrefix != DefaultOutputPrefix {
		t.Errorf("OutputPrefix = %q, expected %q", cfg.Style.OutputPrefix, DefaultOutputPrefix)
	}
}

func TestApplyGenerationDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &GenerationConfig{
		NumScenarios: 7,
		Style: ScenarioStyle{
			SimilarityThreshold: 0.5,
			AttemptFactor:       2,
		},
	}
	ApplyGenerationDefaults(cfg)

	if cfg.NumScenarios != 7 {
		t.Errorf("NumScenarios overwritten: %d", cfg.NumScenarios)
	}
	if cfg.Style.SimilarityThreshold != 0.5 {
		t.Errorf("SimilarityThreshold overwritten: %f", cfg.Style.SimilarityThreshold)
	}
	if got := cfg.MaxAttempts(); got != 14 {
		t.Errorf("MaxAttempts = %d, expected 14", got)
	}
}

func TestApplyGenerationDefaultsClampsInvalidValues(t *testing.T) {
	cfg := &GenerationConfig{
		NumScenarios: -3,
		ChunkSize:    80,
		Style: ScenarioStyle{
			AttemptFactor:       -2,
			Workers:             -1,
			SimilarityThreshold: -0.5,
			AttemptTimeoutSec:   -30,
		},
	}
	ApplyGenerationDefaults(cfg)

	if cfg.NumScenarios != DefaultNumScenarios {
		t.Errorf("Negative NumScenarios not clamped: %d", cfg.NumScenarios)
	}
	if cfg.Style.AttemptFactor != DefaultAttemptFactor {
		t.Errorf("Negative AttemptFactor not clamped: %d", cfg.Style.AttemptFactor)
	}
	if cfg.Style.Workers != DefaultWorkers {
		t.Errorf("Negative Workers not clamped: %d", cfg.Style.Workers)
	}
	if cfg.Style.SimilarityThreshold != DefaultSimilarityThreshold {
		t.Errorf("Negative SimilarityThreshold not clamped: %f", cfg.Style.SimilarityThreshold)
	}
	if got := cfg.MaxAttempts(); got <= 0 {
		t.Errorf("MaxAttempts = %d, must be positive", got)
	}
	if got := cfg.AttemptTimeout(); got != DefaultAttemptTimeout {
		t.Errorf("Negative timeout not clamped: %v", got)
	}
	if cfg.ChunkOverlap*2 >= cfg.ChunkSize {
		t.Errorf("Overlap %d not clamped below chunk size %d", cfg.ChunkOverlap, cfg.ChunkSize)
	}
}

func TestAttemptTimeout(t *testing.T) {
	cfg := &GenerationConfig{}
	if got := cfg.AttemptTimeout(); got != DefaultAttemptTimeout {
		t.Errorf("Default timeout = %v, expected %v", got, DefaultAttemptTimeout)
	}

	cfg.Style.AttemptTimeoutSec = 30
	if got := cfg.AttemptTimeout(); got != 30*time.Second {
		t.Errorf("Timeout = %v, expected 30s", got)
	}
}

func TestLoadGenerationConfigRoundTrip(t *testing.T) {
	cfg := &GenerationConfig{
		Domain:           "financial compliance",
		ExpertRole:       "audit specialist",
		TaskDescription:  "review transactions against reporting rules",
		NumScenarios:     10,
		KnowledgeSources: []string{"./regulations"},
		Seed:             99,
		Style: ScenarioStyle{
			FilterExpr:          "citations >= 1",
			IncludeRawScenarios: true,
		},
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := SaveGenerationConfig(cfg, path); err != nil {
		t.Fatalf("SaveGenerationConfig failed: %v", err)
	}

	loaded, err := LoadGenerationConfig(path)
	if err != nil {
		t.Fatalf("LoadGenerationConfig failed: %v", err)
	}

	if loaded.Domain != cfg.Domain || loaded.Seed != 99 {
		t.Errorf("Loaded config lost fields: %+v", loaded)
	}
	if loaded.Style.FilterExpr != "citations >= 1" {
		t.Errorf("FilterExpr = %q", loaded.Style.FilterExpr)
	}
	if !loaded.Style.IncludeRawScenarios {
		t.Error("IncludeRawScenarios not preserved")
	}
	if loaded.Style.Workers != DefaultWorkers {
		t.Error("Defaults not applied after load")
	}
}

func TestLoadGenerationConfigClampsNegativeTunables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	content := `{
		"domain": "safety compliance",
		"expert_role": "safety officer",
		"task_description": "assess incidents",
		"num_scenarios": -5,
		"knowledge_sources": ["./docs"],
		"scenario_style": {"attempt_factor": -2}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadGenerationConfig(path)
	if err != nil {
		t.Fatalf("LoadGenerationConfig failed: %v", err)
	}
	if cfg.NumScenarios <= 0 || cfg.Style.AttemptFactor <= 0 {
		t.Errorf("Negative tunables survived load: num=%d factor=%d", cfg.NumScenarios, cfg.Style.AttemptFactor)
	}
	if cfg.MaxAttempts() <= 0 {
		t.Errorf("MaxAttempts = %d, must be positive", cfg.MaxAttempts())
	}
}

func TestLoadGenerationConfigErrors(t *testing.T) {
	if _, err := LoadGenerationConfig("/nonexistent/run.json"); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := LoadGenerationConfig(path); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
