package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"github.com/traingen/go-traingen/internal/config"
	"github.com/traingen/go-traingen/internal/prompt"
	"github.com/traingen/go-traingen/internal/repository"
	"github.com/traingen/go-traingen/pkg/llm"
	pkgLogger "github.com/traingen/go-traingen/pkg/logger"
)

// ScenarioGenerator turns knowledge slices into scenario candidates, one
// model call per attempt. Retry policy lives in the run loop, not here.
type ScenarioGenerator struct {
	client    llm.LLM
	templates *prompt.Templates
	cfg       *config.GenerationConfig
	chunks    []repository.Chunk
	knownIDs  map[string]struct{}
	logger    *pkgLogger.Logger

	mu     sync.Mutex
	offset int
}

// NewScenarioGenerator creates a generator over a loaded knowledge corpus.
// Slice rotation starts at a position derived from cfg.Seed so runs with the
// same seed walk the corpus identically.
func NewScenarioGenerator(client llm.LLM, templates *prompt.Templates, cfg *config.GenerationConfig, chunks []repository.Chunk) *ScenarioGenerator {
	known := make(map[string]struct{}, len(chunks))
	for _, chunk := range chunks {
		known[chunk.ID] = struct{}{}
	}

	offset := 0
	if len(chunks) > 0 {
		offset = int(rand.New(rand.NewSource(cfg.Seed)).Int63n(int64(len(chunks))))
	}

	return &ScenarioGenerator{
		client:    client,
		templates: templates,
		cfg:       cfg,
		chunks:    chunks,
		knownIDs:  known,
		logger:    pkgLogger.NewComponentLogger("generator"),
		offset:    offset,
	}
}

// nextSlice returns the next rotating window of context chunks. Consecutive
// attempts see different parts of the corpus so scenarios spread across it.
func (g *ScenarioGenerator) nextSlice() []repository.Chunk {
	if len(g.chunks) == 0 {
		return nil
	}

	size := g.cfg.Style.ContextChunks
	if size <= 0 || size > len(g.chunks) {
		size = len(g.chunks)
	}

	g.mu.Lock()
	start := g.offset
	g.offset = (g.offset + size) % len(g.chunks)
	g.mu.Unlock()

	slice := make([]repository.Chunk, 0, size)
	for i := 0; i < size; i++ {
		slice = append(slice, g.chunks[(start+i)%len(g.chunks)])
	}
	return slice
}

// generateOne performs a single generation attempt against the model. It
// consumes exactly one unit of the attempt budget. Timeouts map to
// ErrGenerationTimeout; unparseable replies map to ErrMalformedOutput;
// provider failures pass through as *llm.ProviderError.
func (g *ScenarioGenerator) generateOne(ctx context.Context, instruction, difficulty string, slice []repository.Chunk) (*repository.ScenarioCandidate, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.AttemptTimeout())
	defer cancel()

	messages := []llm.Message{
		llm.SystemMessage(instruction),
		llm.UserMessage(g.templates.BuildScenarioPrompt(g.cfg, difficulty, slice)),
	}

	raw, err := g.client.Chat(attemptCtx, messages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrGenerationTimeout
		}
		return nil, err
	}

	cand, err := parseScenario(raw, g.knownIDs)
	if err != nil {
		g.logger.Debug("Attempt produced unparseable output", "output_length", len(raw))
		return nil, err
	}

	cand.Difficulty = difficulty
	return cand, nil
}
