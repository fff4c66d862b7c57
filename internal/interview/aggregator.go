package interview

import (
	"fmt"

	"github.com/stemsi/prepwise-backend/internal/model"
)

// ResponseAggregator accumulates one response per question, in question order,
// and hands the sequence out for submission exactly once.
type ResponseAggregator struct {
	responses []model.InterviewResponse
	sealed    bool
}

// Record stores r for the question at index. index must be the next slot
// (append) or the last recorded slot (overwrite, last write wins).
func (a *ResponseAggregator) Record(index int, r model.InterviewResponse) error {
	if a.sealed {
		return ErrSessionFinished
	}
	switch {
	case index == len(a.responses):
		a.responses = append(a.responses, r)
	case index >= 0 && index == len(a.responses)-1:
		a.responses[index] = r
	default:
		return fmt.Errorf("record response for question %d with %d recorded: %w", index, len(a.responses), ErrOutOfOrder)
	}
	return nil
}

// Has reports whether a response exists for index.
func (a *ResponseAggregator) Has(index int) bool {
	return index >= 0 && index < len(a.responses)
}

// Len returns the number of recorded responses.
func (a *ResponseAggregator) Len() int {
	return len(a.responses)
}

// Responses returns a copy of the recorded responses.
func (a *ResponseAggregator) Responses() []model.InterviewResponse {
	out := make([]model.InterviewResponse, len(a.responses))
	copy(out, a.responses)
	return out
}

// Seal closes the aggregator and returns the final sequence. Only the first
// call returns ok; later calls are no-ops.
func (a *ResponseAggregator) Seal() ([]model.InterviewResponse, bool) {
	if a.sealed {
		return nil, false
	}
	a.sealed = true
	return a.Responses(), true
}

// Sealed reports whether Seal has been called.
func (a *ResponseAggregator) Sealed() bool {
	return a.sealed
}

// Reset discards all responses.
func (a *ResponseAggregator) Reset() {
	a.responses = nil
	a.sealed = false
}
