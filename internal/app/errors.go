package app

import (
	"errors"
	"fmt"
)

// Per-attempt sentinel errors. Both are retryable within the attempt budget.
var (
	// ErrMalformedOutput indicates the model reply contained no extractable
	// scenario/response pair
	ErrMalformedOutput = errors.New("model output contains no scenario/response pair")

	// ErrGenerationTimeout indicates a single attempt exceeded its timeout
	ErrGenerationTimeout = errors.New("generation attempt timed out")
)

// RejectReason classifies why a candidate did not enter the dataset
type RejectReason string

const (
	RejectDuplicateContent  RejectReason = "duplicate_content"
	RejectLowGroundingScore RejectReason = "low_grounding_score"
	RejectFilterRejected    RejectReason = "filter_rejected"
	RejectMalformedOutput   RejectReason = "malformed_output"
	RejectGenerationTimeout RejectReason = "generation_timeout"
	RejectProviderError     RejectReason = "provider_error"
)

// Rejection explains one discarded attempt. Detail carries diagnostic context
// such as the nearest-duplicate diff and is only logged at debug level.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) String() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// PartialDatasetWarning is returned when the attempt budget ran out or the
// run was cancelled before reaching the requested dataset size. The
// accompanying result is still valid and worth persisting.
type PartialDatasetWarning struct {
	Accepted  int
	Requested int
	Attempts  int
}

func (w *PartialDatasetWarning) Error() string {
	return fmt.Sprintf("generated %d of %d requested scenarios after %d attempts",
		w.Accepted, w.Requested, w.Attempts)
}
