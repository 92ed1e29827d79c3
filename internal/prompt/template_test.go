package prompt

import (
	"errors"
	"strings"
	"testing"

	"github.com/traingen/go-traingen/internal/config"
	"github.com/traingen/go-traingen/internal/repository"
)

func validConfig() *config.GenerationConfig {
	return &config.GenerationConfig{
		Domain:          "Medical Compliance",
		ExpertRole:      "Medical Compliance Expert",
		TaskDescription: "compliance assessment based on SOPs",
	}
}

func TestBuildInstruction(t *testing.T) {
	tmpl := NewTemplates("")

	instruction, err := tmpl.BuildInstruction(validConfig())
	if err != nil {
		t.Fatalf("BuildInstruction failed: %v", err)
	}

	for _, want := range []string{
		"Medical Compliance Expert",
		"medical compliance",
		"cite",
	} {
		if !strings.Contains(strings.ToLower(instruction), strings.ToLower(want)) {
			t.Errorf("Instruction missing %q:\n%s", want, instruction)
		}
	}
}

func TestBuildInstructionDeterministic(t *testing.T) {
	tmpl := NewTemplates("")
	cfg := validConfig()

	first, err := tmpl.BuildInstruction(cfg)
	if err != nil {
		t.Fatalf("BuildInstruction failed: %v", err)
	}
	second, err := tmpl.BuildInstruction(cfg)
	if err != nil {
		t.Fatalf("BuildInstruction failed: %v", err)
	}

	if first != second {
		t.Error("Expected identical instructions for identical config")
	}
}

func TestBuildInstructionRequiredFields(t *testing.T) {
	testCases := []struct {
		field  string
		mutate func(*config.GenerationConfig)
	}{
		{"domain", func(c *config.GenerationConfig) { c.Domain = "" }},
		{"expert_role", func(c *config.GenerationConfig) { c.ExpertRole = "  " }},
		{"task_description", func(c *config.GenerationConfig) { c.TaskDescription = "" }},
	}

	tmpl := NewTemplates("")
	for _, tc := range testCases {
		t.Run(tc.field, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			_, err := tmpl.BuildInstruction(cfg)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected *ConfigError, got %v", err)
			}
			if cfgErr.Field != tc.field {
				t.Errorf("Expected field %q, got %q", tc.field, cfgErr.Field)
			}
		})
	}
}

func TestBuildScenarioPrompt(t *testing.T) {
	tmpl := NewTemplates("")
	chunks := []repository.Chunk{
		{ID: "sop-001", SourcePath: "kb/sop.md", Text: "Hand hygiene is required before patient contact."},
		{ID: "sop-002", SourcePath: "kb/sop.md", Text: "Gloves must be replaced between patients."},
	}

	rendered := tmpl.BuildScenarioPrompt(validConfig(), "edge_case", chunks)

	for _, want := range []string{"[sop-001]", "[sop-002]", "edge_case", "SCENARIO:", "RESPONSE:", "CITATIONS:"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("Prompt missing %q", want)
		}
	}
}

func TestTrainingPromptUsesCustomQuery(t *testing.T) {
	tmpl := NewTemplates("What is your legal assessment?")

	got := tmpl.TrainingPrompt("A clinic reuses gloves.")
	if !strings.Contains(got, "A clinic reuses gloves.") {
		t.Error("Training prompt missing scenario text")
	}
	if !strings.Contains(got, "What is your legal assessment?") {
		t.Error("Training prompt missing custom user query")
	}
}
