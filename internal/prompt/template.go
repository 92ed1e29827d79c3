// Package prompt builds the instruction and per-attempt prompts that
// condition the generation agent on a domain configuration.
package prompt

import (
	"fmt"
	"strings"

	"github.com/traingen/go-traingen/internal/config"
	"github.com/traingen/go-traingen/internal/repository"
)

// ConfigError reports an invalid generation configuration. It is fatal and
// aborts the run before any generation attempt.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid generation config: %s %s", e.Field, e.Reason)
}

// Templates renders instructions from a generation config. All methods are
// pure functions of their inputs.
type Templates struct {
	// UserQuery is the question appended to every scenario when projecting
	// training records. Empty selects the default assessment query.
	UserQuery string
}

const defaultUserQuery = "Based on the provided standards and procedures, what is your assessment of this scenario? " +
	"Please provide your decision and detailed rationale, citing specific requirements and sections."

// NewTemplates creates a template set with an optional user query override
func NewTemplates(userQuery string) *Templates {
	return &Templates{UserQuery: userQuery}
}

// BuildInstruction renders the system instruction for the generation agent.
// Deterministic for a given config; fails with *ConfigError when a required
// domain field is empty.
func (t *Templates) BuildInstruction(cfg *config.GenerationConfig) (string, error) {
	if strings.TrimSpace(cfg.Domain) == "" {
		return "", &ConfigError{Field: "domain", Reason: "must not be empty"}
	}
	if strings.TrimSpace(cfg.ExpertRole) == "" {
		return "", &ConfigError{Field: "expert_role", Reason: "must not be empty"}
	}
	if strings.TrimSpace(cfg.TaskDescription) == "" {
		return "", &ConfigError{Field: "task_description", Reason: "must not be empty"}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert %s with deep knowledge of industry standards, regulations, and best practices in %s.\n\n",
		cfg.ExpertRole, strings.ToLower(cfg.Domain))
	b.WriteString("Your role is to produce realistic scenarios and accurate, detailed assessments grounded in the knowledge excerpts you are given. ")
	b.WriteString("Every response must be based on the provided knowledge, not general world knowledge, and must cite the identifiers of the knowledge chunks it relies on.\n\n")
	b.WriteString("When analyzing scenarios, follow this structure:\n")
	b.WriteString("1. Identify all relevant criteria from the knowledge excerpts\n")
	b.WriteString("2. Apply each criterion to the given scenario\n")
	b.WriteString("3. Provide a clear decision with detailed rationale\n")
	b.WriteString("4. Cite the specific chunk identifiers that support the decision\n")

	return b.String(), nil
}

// BuildScenarioPrompt renders the per-attempt user prompt: the knowledge
// excerpt block, the difficulty qualifier, and the structural output contract
// the parser expects.
func (t *Templates) BuildScenarioPrompt(cfg *config.GenerationConfig, difficulty string, chunks []repository.Chunk) string {
	var b strings.Builder

	b.WriteString("Knowledge excerpts:\n\n")
	for _, chunk := range chunks {
		fmt.Fprintf(&b, "[%s] (from %s)\n%s\n\n", chunk.ID, chunk.SourcePath, chunk.Text)
	}

	fmt.Fprintf(&b, "Create one %s scenario for %s.\n\n", difficulty, cfg.TaskDescription)
	b.WriteString("The scenario should:\n")
	b.WriteString("- Be realistic and detailed, with all context needed for a complete assessment\n")
	b.WriteString("- Require the knowledge excerpts above to assess correctly\n")
	b.WriteString("- Be different from previously generated scenarios\n\n")

	fmt.Fprintf(&b, "Then answer it as the expert. %s\n\n", t.userQuery())
	b.WriteString("Format your output exactly as:\n")
	b.WriteString("SCENARIO:\n<the scenario>\n\n")
	b.WriteString("RESPONSE:\n<the expert response>\n\n")
	b.WriteString("CITATIONS:\n<comma-separated chunk identifiers>\n")

	return b.String()
}

// TrainingPrompt renders the user-side content of a training record: the
// scenario followed by the standing user query, matching what a fine-tuned
// model will see at inference time.
func (t *Templates) TrainingPrompt(scenario string) string {
	return fmt.Sprintf("%s\n\nQUESTION: %s", scenario, t.userQuery())
}

func (t *Templates) userQuery() string {
	if t.UserQuery != "" {
		return t.UserQuery
	}
	return defaultUserQuery
}
