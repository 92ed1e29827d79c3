package app

import (
	"time"

	"github.com/traingen/go-traingen/internal/config"
	"github.com/traingen/go-traingen/internal/prompt"
	"github.com/traingen/go-traingen/internal/repository"
)

// RunStats summarizes one generation run for the manifest
type RunStats struct {
	Corpus           repository.CorpusStats
	Attempts         int
	RejectedByReason map[string]int
	StartedAt        time.Time
	Duration         time.Duration
}

// DatasetAssembler projects accepted scenarios into the final artifacts. It
// performs no I/O and holds no state, so assembling the same accepted
// sequence twice yields byte-identical training records.
type DatasetAssembler struct {
	templates *prompt.Templates
}

func NewDatasetAssembler(templates *prompt.Templates) *DatasetAssembler {
	return &DatasetAssembler{templates: templates}
}

// Assemble builds the raw scenario list, the training records, and the run
// manifest. Each training record is a strict two-turn projection of one
// accepted scenario, in acceptance order.
func (a *DatasetAssembler) Assemble(accepted []repository.AcceptedScenario, cfg *config.GenerationConfig, stats RunStats) ([]repository.AcceptedScenario, []repository.TrainingRecord, repository.DatasetManifest) {
	raw := make([]repository.AcceptedScenario, len(accepted))
	copy(raw, accepted)

	records := make([]repository.TrainingRecord, 0, len(accepted))
	for _, scenario := range accepted {
		records = append(records, repository.TrainingRecord{
			Messages: []repository.ChatTurn{
				{Role: "user", Content: a.templates.TrainingPrompt(scenario.PromptText)},
				{Role: "assistant", Content: scenario.ResponseText},
			},
		})
	}

	rejected := 0
	for _, n := range stats.RejectedByReason {
		rejected += n
	}

	manifest := repository.DatasetManifest{
		Config:             cfg,
		AcceptedCount:      len(accepted),
		RejectedCount:      rejected,
		RejectedByReason:   stats.RejectedByReason,
		StartedAt:          stats.StartedAt,
		GenerationDuration: stats.Duration.String(),
	}
	return raw, records, manifest
}
