package repository

import (
	"context"
	"time"
)

// ScenarioCandidate is the parsed output of a single generation attempt.
// Candidates are transient; rejected ones are discarded.
type ScenarioCandidate struct {
	PromptText        string
	ResponseText      string
	CitedKnowledgeIDs []string
	RawAgentOutput    string
	Difficulty        string
}

// AcceptedScenario is a candidate that passed diversity and grounding checks.
// Immutable after acceptance; sequential ids follow acceptance order.
type AcceptedScenario struct {
	SequentialID      int       `json:"id"`
	PromptText        string    `json:"scenario"`
	ResponseText      string    `json:"response"`
	CitedKnowledgeIDs []string  `json:"citations"`
	Difficulty        string    `json:"difficulty"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// ChatTurn is one message of a conversational training record
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TrainingRecord is the fine-tuning projection of an accepted scenario:
// exactly two turns, user then assistant. Derived, never mutated.
type TrainingRecord struct {
	Messages []ChatTurn `json:"messages"`
}

// DatasetManifest records the exact configuration and outcome counts of one
// generation run so it can be reproduced.
type DatasetManifest struct {
	Config             any            `json:"config"`
	AcceptedCount      int            `json:"accepted_count"`
	RejectedCount      int            `json:"rejected_count"`
	RejectedByReason   map[string]int `json:"rejected_by_reason,omitempty"`
	StartedAt          time.Time      `json:"started_at"`
	GenerationDuration string         `json:"generation_duration"`
}

// ArtifactWriter persists the assembled dataset artifacts. The assembler
// itself performs no I/O; this is the external persistence collaborator.
type ArtifactWriter interface {
	// WriteDataset writes the training JSONL, the raw scenario JSON, and the
	// manifest, returning the paths written
	WriteDataset(ctx context.Context, records []TrainingRecord, raw []AcceptedScenario, manifest DatasetManifest) (DatasetPaths, error)
}

// DatasetPaths names the files produced by one run
type DatasetPaths struct {
	Training string
	Raw      string
	Manifest string
}
