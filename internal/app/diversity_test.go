package app

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/traingen/go-traingen/internal/prompt"
	"github.com/traingen/go-traingen/internal/repository"
)

func candidate(promptText, responseText string, citations ...string) *repository.ScenarioCandidate {
	return &repository.ScenarioCandidate{
		PromptText:        promptText,
		ResponseText:      responseText,
		CitedKnowledgeIDs: citations,
		Difficulty:        DifficultyBasic,
	}
}

func TestConsiderAcceptsDistinctCandidates(t *testing.T) {
	controller, err := NewDiversityController(5, 0.82, "")
	if err != nil {
		t.Fatalf("NewDiversityController failed: %v", err)
	}

	candidates := []*repository.ScenarioCandidate{
		candidate("A hospital shares diagnoses with an insurer without consent.", "Consent is required first.", "policy-001"),
		candidate("An engineer copies production data to a test environment.", "Use anonymized fixtures instead.", "policy-002"),
		candidate("The retention schedule expired for archived invoices.", "Purge them after the legal hold check.", "guide-001"),
	}

	for i, cand := range candidates {
		accepted, rejection := controller.Consider(cand)
		if rejection != nil {
			t.Fatalf("Candidate %d rejected: %s", i, rejection)
		}
		if accepted == nil {
			t.Fatalf("Candidate %d neither accepted nor rejected", i)
		}
		if accepted.SequentialID != i+1 {
			t.Errorf("Candidate %d got id %d, expected %d", i, accepted.SequentialID, i+1)
		}
	}

	if controller.Count() != 3 {
		t.Errorf("Expected 3 accepted, got %d", controller.Count())
	}
}

func TestConsiderRejectsDuplicates(t *testing.T) {
	controller, err := NewDiversityController(5, 0.82, "")
	if err != nil {
		t.Fatalf("NewDiversityController failed: %v", err)
	}

	first := candidate("A nurse emails patient records to a personal account.", "That is a reportable breach.", "policy-001")
	if _, rejection := controller.Consider(first); rejection != nil {
		t.Fatalf("First candidate rejected: %s", rejection)
	}

	paraphrase := candidate("A nurse emails patient records to a private personal account.", "That is a reportable breach.", "policy-002")
	accepted, rejection := controller.Consider(paraphrase)
	if accepted != nil {
		t.Fatal("Near-duplicate candidate was accepted")
	}
	if rejection == nil || rejection.Reason != RejectDuplicateContent {
		t.Fatalf("Expected duplicate rejection, got %v", rejection)
	}
	if !strings.Contains(rejection.Detail, "similarity") {
		t.Errorf("Detail should carry the similarity score: %q", rejection.Detail)
	}
	if controller.Count() != 1 {
		t.Errorf("Expected 1 accepted, got %d", controller.Count())
	}
}

func TestConsiderRejectsUngroundedCandidates(t *testing.T) {
	controller, err := NewDiversityController(5, 0.82, "")
	if err != nil {
		t.Fatalf("NewDiversityController failed: %v", err)
	}

	_, rejection := controller.Consider(candidate("A scenario citing nothing.", "An answer."))
	if rejection == nil || rejection.Reason != RejectLowGroundingScore {
		t.Fatalf("Expected grounding rejection, got %v", rejection)
	}
}

func TestConsiderAtCapacity(t *testing.T) {
	controller, err := NewDiversityController(1, 0.82, "")
	if err != nil {
		t.Fatalf("NewDiversityController failed: %v", err)
	}

	if _, rejection := controller.Consider(candidate("First scenario about audits.", "First answer.", "policy-001")); rejection != nil {
		t.Fatalf("First candidate rejected: %s", rejection)
	}

	accepted, rejection := controller.Consider(candidate("Entirely different topic on vendor onboarding.", "Second answer.", "policy-002"))
	if accepted != nil || rejection != nil {
		t.Errorf("Expected silent discard at capacity, got accepted=%v rejection=%v", accepted, rejection)
	}
	if !controller.Full() {
		t.Error("Controller should report full")
	}
}

func TestConsiderFilterExpression(t *testing.T) {
	tests := []struct {
		name       string
		filterExpr string
		cand       *repository.ScenarioCandidate
		wantReason RejectReason
	}{
		{
			name:       "filter passes",
			filterExpr: "citations >= 1 && prompt_words > 3",
			cand:       candidate("A long enough scenario about record retention.", "Keep for seven years.", "policy-001"),
			wantReason: "",
		},
		{
			name:       "filter rejects short prompts",
			filterExpr: "prompt_words > 10",
			cand:       candidate("Too short.", "An answer.", "policy-001"),
			wantReason: RejectFilterRejected,
		},
		{
			name:       "filter rejects low similarity margin",
			filterExpr: "similarity < 0.5",
			cand:       candidate("A scenario about safety drills.", "Run them quarterly.", "policy-001"),
			wantReason: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller, err := NewDiversityController(5, 0.82, tt.filterExpr)
			if err != nil {
				t.Fatalf("NewDiversityController failed: %v", err)
			}

			accepted, rejection := controller.Consider(tt.cand)
			if tt.wantReason == "" {
				if rejection != nil {
					t.Fatalf("Expected acceptance, got rejection: %s", rejection)
				}
				if accepted == nil {
					t.Fatal("Expected acceptance")
				}
				return
			}
			if rejection == nil || rejection.Reason != tt.wantReason {
				t.Fatalf("Expected %s rejection, got %v", tt.wantReason, rejection)
			}
		})
	}
}

func TestNewDiversityControllerInvalidFilter(t *testing.T) {
	_, err := NewDiversityController(5, 0.82, "citations >=")
	if err == nil {
		t.Fatal("Expected compile error for invalid filter expression")
	}

	var configErr *prompt.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Expected *prompt.ConfigError, got %T", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{name: "identical", a: "retention policy applies here", b: "retention policy applies here", expected: 1.0},
		{name: "disjoint", a: "alpha beta gamma", b: "delta epsilon zeta", expected: 0.0},
		{name: "empty", a: "", b: "anything", expected: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(termFrequencies(tt.a), termFrequencies(tt.b))
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("cosineSimilarity = %f, expected %f", got, tt.expected)
			}
		})
	}

	t.Run("partial overlap is between 0 and 1", func(t *testing.T) {
		got := cosineSimilarity(
			termFrequencies("the retention policy for records"),
			termFrequencies("the deletion policy for backups"),
		)
		if got <= 0 || got >= 1 {
			t.Errorf("Expected similarity in (0,1), got %f", got)
		}
	})
}
