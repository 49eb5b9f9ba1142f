package goldrun

import (
	"context"
	"time"
)

// Action is one administrative operation within a provisioning run.
// It returns everything the operation wrote (combined stdout/stderr for
// external commands) even when it fails. Failing to start an external
// process is an ordinary failure, not a distinct condition.
type Action func(ctx context.Context) (output string, err error)

// Step is a single named entry in a provisioning sequence. Steps are
// immutable once a run starts; the runner owns them for the duration.
type Step struct {
	Label     string
	Action    Action
	Ignorable bool // failure is recorded but does not halt the run
}

// Result records one attempted step. Results are append-only: the runner
// never mutates one after creating it.
type Result struct {
	Label     string
	StartedAt time.Time
	EndedAt   time.Time
	Output    string
	Err       error // nil on success
	Ignored   bool  // step failed but was marked ignorable
}

// OK reports whether the step succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Outcome is the terminal state of a run.
type Outcome string

const (
	// OutcomeCompleted: every step ran, none halted the run.
	OutcomeCompleted Outcome = "completed"
	// OutcomeHalted: a fatal step failed; later steps never ran.
	OutcomeHalted Outcome = "halted"
	// OutcomeLogUnavailable: the durable log could not be appended to.
	// The audit trail is a correctness requirement, so this aborts the
	// run regardless of the failing step's own policy.
	OutcomeLogUnavailable Outcome = "log-unavailable"
)

// Report is the in-memory run log: every attempted step, in order, plus
// the terminal outcome. A report is returned on every outcome, including
// aborts, so callers always see the partial history.
type Report struct {
	Plan     string
	Outcome  Outcome
	HaltedAt string // label of the fatal step when Outcome is OutcomeHalted
	Results  []Result
}

// StepState is the lifecycle of a single step as seen by observers.
type StepState uint8

const (
	StepPending StepState = iota
	StepRunning
	StepDone
	StepIgnored // failed, but the step was ignorable and the run went on
	StepFailed
	StepSkipped // never ran because an earlier fatal step halted the run
)

func (s StepState) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepDone:
		return "done"
	case StepIgnored:
		return "ignored"
	case StepFailed:
		return "failed"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StepEvent is emitted to the runner's observer as steps change state.
// Observers are a pure side channel with no effect on control flow.
type StepEvent struct {
	Index  int
	Label  string
	State  StepState
	Detail string // failure summary, empty otherwise
}
