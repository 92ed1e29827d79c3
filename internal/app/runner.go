package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/traingen/go-traingen/internal/config"
	"github.com/traingen/go-traingen/internal/prompt"
	"github.com/traingen/go-traingen/internal/repository"
	"github.com/traingen/go-traingen/pkg/llm"
	pkgLogger "github.com/traingen/go-traingen/pkg/logger"
)

// Difficulty qualifiers assigned to attempts. The requested dataset size is
// split into thirds of basic, complex, and edge_case, with any remainder
// generated as general scenarios.
const (
	DifficultyBasic    = "basic"
	DifficultyComplex  = "complex"
	DifficultyEdgeCase = "edge_case"
	DifficultyGeneral  = "general"
)

// RunResult is the full outcome of one generation run. Warning is non-nil
// when the run ended with fewer scenarios than requested; the artifacts are
// still valid and should be written.
type RunResult struct {
	Raw      []repository.AcceptedScenario
	Records  []repository.TrainingRecord
	Manifest repository.DatasetManifest
	Warning  *PartialDatasetWarning
}

// Runner drives one generation run. All mutable run state lives on the
// runState created per Run call, never on the Runner or at package level.
type Runner struct {
	generator  *ScenarioGenerator
	controller *DiversityController
	assembler  *DatasetAssembler
	templates  *prompt.Templates
	cfg        *config.GenerationConfig
	corpus     repository.CorpusStats
	logger     *pkgLogger.Logger
}

// runState tracks counters, the run-scoped logger, and the first fatal error
// for one run
type runState struct {
	attempts atomic.Int64
	logger   *pkgLogger.Logger

	mu       sync.Mutex
	rejected map[string]int
	fatal    error
}

func (s *runState) recordRejection(reason RejectReason) {
	s.mu.Lock()
	s.rejected[string(reason)]++
	s.mu.Unlock()
}

func (s *runState) setFatal(err error) {
	s.mu.Lock()
	if s.fatal == nil {
		s.fatal = err
	}
	s.mu.Unlock()
}

// NewRunner wires the pipeline for one configuration. The acceptance filter
// expression is compiled here, so an invalid expression fails before any
// model call.
func NewRunner(client llm.LLM, templates *prompt.Templates, cfg *config.GenerationConfig, chunks []repository.Chunk, corpus repository.CorpusStats) (*Runner, error) {
	controller, err := NewDiversityController(cfg.NumScenarios, cfg.Style.SimilarityThreshold, cfg.Style.FilterExpr)
	if err != nil {
		return nil, err
	}

	return &Runner{
		generator:  NewScenarioGenerator(client, templates, cfg, chunks),
		controller: controller,
		assembler:  NewDatasetAssembler(templates),
		templates:  templates,
		cfg:        cfg,
		corpus:     corpus,
		logger:     pkgLogger.NewComponentLogger("runner"),
	}, nil
}

// Run generates scenarios until the requested count, the attempt budget, or
// cancellation stops it. Cancellation stops new attempts but lets in-flight
// ones finish, then partial results are assembled. Only configuration errors
// and provider authentication failures return with no result.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	instruction, err := r.templates.BuildInstruction(r.cfg)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	maxAttempts := r.cfg.MaxAttempts()
	state := &runState{
		rejected: make(map[string]int),
		logger:   r.logger.WithRun(started.Format("20060102_150405")),
	}

	state.logger.Info("Starting generation run",
		"domain", r.cfg.Domain,
		"requested", r.cfg.NumScenarios,
		"max_attempts", maxAttempts,
		"workers", r.cfg.Style.Workers,
		"knowledge_files", r.corpus.Files,
		"knowledge_chunks", r.corpus.Chunks)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	difficulties := make(chan string, maxAttempts+r.cfg.NumScenarios)
	for _, d := range difficultyMix(r.cfg) {
		difficulties <- d
	}

	workers := r.cfg.Style.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.work(runCtx, cancel, instruction, difficulties, state, maxAttempts)
		}()
	}
	wg.Wait()

	state.mu.Lock()
	fatal := state.fatal
	state.mu.Unlock()
	if fatal != nil {
		return nil, fatal
	}

	accepted := r.controller.Accepted()
	attempts := int(state.attempts.Load())

	raw, records, manifest := r.assembler.Assemble(accepted, r.cfg, RunStats{
		Corpus:           r.corpus,
		Attempts:         attempts,
		RejectedByReason: state.rejected,
		StartedAt:        started,
		Duration:         time.Since(started),
	})

	result := &RunResult{Raw: raw, Records: records, Manifest: manifest}
	if len(accepted) < r.cfg.NumScenarios {
		result.Warning = &PartialDatasetWarning{
			Accepted:  len(accepted),
			Requested: r.cfg.NumScenarios,
			Attempts:  attempts,
		}
		state.logger.Warn("Run ended with partial dataset",
			"accepted", len(accepted),
			"requested", r.cfg.NumScenarios,
			"attempts", attempts)
	} else {
		state.logger.Info("Run complete",
			"accepted", len(accepted),
			"attempts", attempts,
			"duration", time.Since(started).Round(time.Second).String())
	}
	return result, nil
}

// work consumes attempts until the dataset is full, the budget is spent, or
// the run context is done
func (r *Runner) work(ctx context.Context, cancel context.CancelFunc, instruction string, difficulties chan string, state *runState, maxAttempts int) {
	for {
		if ctx.Err() != nil || r.controller.Full() {
			return
		}
		if state.attempts.Add(1) > int64(maxAttempts) {
			state.attempts.Add(-1)
			return
		}

		difficulty := DifficultyGeneral
		select {
		case difficulty = <-difficulties:
		default:
		}

		cand, err := r.generator.generateOne(ctx, instruction, difficulty, r.generator.nextSlice())
		if err != nil {
			if !r.handleAttemptError(err, difficulty, difficulties, state, cancel) {
				return
			}
			continue
		}

		accepted, rejection := r.controller.Consider(cand)
		switch {
		case accepted != nil:
			state.logger.Info("Accepted scenario",
				"id", accepted.SequentialID,
				"difficulty", accepted.Difficulty,
				"citations", len(accepted.CitedKnowledgeIDs))
		case rejection != nil:
			state.recordRejection(rejection.Reason)
			state.logger.Debug("Rejected candidate", "reason", rejection.Reason, "detail", rejection.Detail)
			requeue(difficulties, difficulty)
		default:
			// Dataset filled while this attempt was in flight
		}
	}
}

// handleAttemptError classifies a failed attempt. It returns false when the
// worker should stop, and records the failure as a rejection otherwise.
func (r *Runner) handleAttemptError(err error, difficulty string, difficulties chan string, state *runState, cancel context.CancelFunc) bool {
	switch {
	case pkgerrors.Is(err, context.Canceled):
		return false

	case pkgerrors.Is(err, ErrMalformedOutput):
		state.recordRejection(RejectMalformedOutput)

	case pkgerrors.Is(err, ErrGenerationTimeout):
		state.recordRejection(RejectGenerationTimeout)
		state.logger.Warn("Attempt timed out", "timeout", r.cfg.AttemptTimeout().String())

	default:
		var providerErr *llm.ProviderError
		if pkgerrors.As(err, &providerErr) && providerErr.Authentication {
			state.setFatal(pkgerrors.Wrap(err, "provider authentication failed"))
			cancel()
			return false
		}
		state.recordRejection(RejectProviderError)
		state.logger.Warn("Attempt failed", "error", err)
	}

	requeue(difficulties, difficulty)
	return true
}

// requeue puts a difficulty back so a later attempt retries it. The channel
// is sized for the full budget, so this never blocks; the guard is for
// safety only.
func requeue(difficulties chan string, difficulty string) {
	select {
	case difficulties <- difficulty:
	default:
	}
}

// difficultyMix builds the per-scenario difficulty assignments. An explicit
// cfg.Style.Difficulties list is cycled; otherwise the size is split into
// thirds with a general remainder.
func difficultyMix(cfg *config.GenerationConfig) []string {
	num := cfg.NumScenarios
	mix := make([]string, 0, num)

	if len(cfg.Style.Difficulties) > 0 {
		for i := 0; i < num; i++ {
			mix = append(mix, cfg.Style.Difficulties[i%len(cfg.Style.Difficulties)])
		}
		return mix
	}

	third := num / 3
	for i := 0; i < third; i++ {
		mix = append(mix, DifficultyBasic)
	}
	for i := 0; i < third; i++ {
		mix = append(mix, DifficultyComplex)
	}
	for i := 0; i < third; i++ {
		mix = append(mix, DifficultyEdgeCase)
	}
	for len(mix) < num {
		mix = append(mix, DifficultyGeneral)
	}
	return mix
}
