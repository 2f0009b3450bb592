package harness

import (
	"github.com/roach88/pollstore/internal/voting"
)

// TraceEvent is one journal entry of a scenario run.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Op      string `json:"op"`
	Args    string `json:"args"`
	Outcome string `json:"outcome"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every flow step and assertion matched.
	Pass bool `json:"pass"`

	// Trace is the ledger journal in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State holds the counted results of every poll left at the end.
	State []voting.Results `json:"state"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  []voting.Results{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
