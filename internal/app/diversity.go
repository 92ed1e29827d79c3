package app

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
	"gonum.org/v1/gonum/floats"

	"github.com/traingen/go-traingen/internal/prompt"
	"github.com/traingen/go-traingen/internal/repository"
	pkgLogger "github.com/traingen/go-traingen/pkg/logger"
)

// DiversityController owns the accepted set. Consider is the only way in,
// and its check-then-insert runs under one mutex so concurrent candidates
// can never both pass against a set missing the other.
type DiversityController struct {
	capacity  int
	threshold float64
	filter    *vm.Program
	logger    *pkgLogger.Logger

	mu       sync.Mutex
	accepted []repository.AcceptedScenario
	vectors  []map[string]float64
	now      func() time.Time
}

// NewDiversityController creates a controller for a dataset of at most
// capacity scenarios with duplicate threshold θ. A non-empty filterExpr is
// compiled once here; a compile failure is a configuration error surfaced
// before any model call.
func NewDiversityController(capacity int, threshold float64, filterExpr string) (*DiversityController, error) {
	c := &DiversityController{
		capacity:  capacity,
		threshold: threshold,
		logger:    pkgLogger.NewComponentLogger("diversity"),
		now:       time.Now,
	}

	if filterExpr != "" {
		program, err := expr.Compile(filterExpr, expr.AsBool())
		if err != nil {
			return nil, &prompt.ConfigError{
				Field:  "scenario_style.filter_expr",
				Reason: fmt.Sprintf("invalid filter expression: %v", err),
			}
		}
		c.filter = program
	}
	return c, nil
}

// Consider decides a candidate's fate atomically. Returns the accepted
// scenario with its sequential id, or a rejection. Both results nil means the
// dataset already reached capacity and the candidate was discarded uncounted.
func (c *DiversityController) Consider(cand *repository.ScenarioCandidate) (*repository.AcceptedScenario, *Rejection) {
	if len(cand.CitedKnowledgeIDs) == 0 {
		return nil, &Rejection{
			Reason: RejectLowGroundingScore,
			Detail: "no citations resolve to known knowledge chunks",
		}
	}

	vector := termFrequencies(cand.PromptText)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.accepted) >= c.capacity {
		return nil, nil
	}

	maxSim, nearest := 0.0, -1
	for i, existing := range c.vectors {
		if sim := cosineSimilarity(vector, existing); sim > maxSim {
			maxSim, nearest = sim, i
		}
	}

	if maxSim >= c.threshold {
		detail := fmt.Sprintf("similarity %.3f to scenario %d", maxSim, c.accepted[nearest].SequentialID)
		c.logger.Debug("Rejecting near-duplicate candidate",
			"similarity", maxSim,
			"nearest_id", c.accepted[nearest].SequentialID,
			"diff", promptDiff(c.accepted[nearest].PromptText, cand.PromptText))
		return nil, &Rejection{Reason: RejectDuplicateContent, Detail: detail}
	}

	if c.filter != nil {
		pass, err := c.evaluateFilter(cand, maxSim)
		if err != nil {
			return nil, &Rejection{Reason: RejectFilterRejected, Detail: err.Error()}
		}
		if !pass {
			return nil, &Rejection{Reason: RejectFilterRejected, Detail: "acceptance filter returned false"}
		}
	}

	accepted := repository.AcceptedScenario{
		SequentialID:      len(c.accepted) + 1,
		PromptText:        cand.PromptText,
		ResponseText:      cand.ResponseText,
		CitedKnowledgeIDs: cand.CitedKnowledgeIDs,
		Difficulty:        cand.Difficulty,
		GeneratedAt:       c.now(),
	}
	c.accepted = append(c.accepted, accepted)
	c.vectors = append(c.vectors, vector)
	return &accepted, nil
}

// evaluateFilter runs the compiled acceptance expression over the candidate's
// measurable features
func (c *DiversityController) evaluateFilter(cand *repository.ScenarioCandidate, similarity float64) (bool, error) {
	result, err := expr.Run(c.filter, map[string]any{
		"similarity":     similarity,
		"citations":      len(cand.CitedKnowledgeIDs),
		"prompt_words":   len(strings.Fields(cand.PromptText)),
		"response_words": len(strings.Fields(cand.ResponseText)),
	})
	if err != nil {
		return false, fmt.Errorf("filter evaluation failed: %w", err)
	}

	pass, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter expression returned %T, expected bool", result)
	}
	return pass, nil
}

// Accepted returns a snapshot of the accepted set in acceptance order
func (c *DiversityController) Accepted() []repository.AcceptedScenario {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]repository.AcceptedScenario, len(c.accepted))
	copy(out, c.accepted)
	return out
}

// Count returns how many scenarios are accepted so far
func (c *DiversityController) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.accepted)
}

// Full reports whether the dataset reached its requested size
func (c *DiversityController) Full() bool {
	return c.Count() >= c.capacity
}

// termFrequencies builds a normalized token-frequency vector over lowercased
// alphanumeric tokens
func termFrequencies(text string) map[string]float64 {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'à' && r <= 'ÿ')
	})
	if len(tokens) == 0 {
		return nil
	}

	freq := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		freq[token]++
	}
	total := float64(len(tokens))
	for token := range freq {
		freq[token] /= total
	}
	return freq
}

// cosineSimilarity computes cosine similarity between two term-frequency
// vectors over their shared vocabulary
func cosineSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	vocab := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for token := range a {
		vocab = append(vocab, token)
		seen[token] = struct{}{}
	}
	for token := range b {
		if _, dup := seen[token]; !dup {
			vocab = append(vocab, token)
		}
	}

	va := make([]float64, len(vocab))
	vb := make([]float64, len(vocab))
	for i, token := range vocab {
		va[i] = a[token]
		vb[i] = b[token]
	}

	na := floats.Norm(va, 2)
	nb := floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(va, vb) / (na * nb)
}

// promptDiff renders a unified diff between an accepted prompt and a
// near-duplicate candidate for debug logging
func promptDiff(accepted, candidate string) string {
	before := accepted + "\n"
	after := candidate + "\n"
	edits := myers.ComputeEdits(span.URIFromPath("accepted"), before, after)
	return fmt.Sprint(gotextdiff.ToUnified("accepted", "candidate", before, edits))
}
