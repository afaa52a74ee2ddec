package backup

import (
	"fmt"
	"strings"
)

// Outcome is the single terminal state of a job
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Result is the one terminal value a job produces. The core worker returns
// it instead of signalling through process exit; a boundary adapter
// translates it to an exit code or an IPC message.
type Result struct {
	Outcome Outcome
	Record  *Record
	Err     *JobError

	// Trail is the ordered list of states the job passed through, included
	// in the diagnostic trace of a failure payload.
	Trail []JobState
}

// Succeeded reports whether the job reached its success terminal state
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSucceeded
}

// ErrorPayload formats the failure for the controller:
// "<code-or-response-body>\n<trace>". Empty for successful results.
func (r Result) ErrorPayload() string {
	if r.Err == nil {
		return ""
	}
	states := make([]string, len(r.Trail))
	for i, s := range r.Trail {
		states[i] = string(s)
	}
	trace := fmt.Sprintf("%s | %s", strings.Join(states, " -> "), r.Err.Error())
	return r.Err.Code() + "\n" + trace
}
