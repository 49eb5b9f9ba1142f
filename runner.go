package goldrun

import (
	"context"
	"fmt"
	"time"
)

// Sink is the durable run log. Every append can fail, and a failed append
// aborts the run: an unauditable run is worse than an unfinished one.
type Sink interface {
	Info(msg string) error
	Warn(msg string) error
	Error(msg string) error
}

// Clock abstracts time for testing.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock with the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Runner executes a provisioning sequence: steps run strictly in
// declaration order, one at a time. Administrative actions mutate shared
// host state, so there is deliberately no parallelism between steps.
type Runner struct {
	Sink   Sink            // required for durable logging; nil discards
	Clock  Clock           // nil means RealClock
	OnStep func(StepEvent) // optional: drives interactive progress output
}

// Run executes steps in order and returns the report plus a terminal
// error. The report is returned on every outcome, aborts included, so the
// caller always sees the partial history.
//
// A fatal (non-ignorable) step failure halts the run with *StepError.
// A log append failure aborts the run with *SinkError. On full completion
// the returned error is nil.
func (r *Runner) Run(ctx context.Context, plan string, steps []Step) (*Report, error) {
	rep := &Report{Plan: plan, Outcome: OutcomeCompleted}

	if err := r.sink().Info(fmt.Sprintf("run started: %s (%d steps)", plan, len(steps))); err != nil {
		return r.abortLogging(rep, err)
	}

	for i, step := range steps {
		r.emit(StepEvent{Index: i, Label: step.Label, State: StepRunning})
		if err := r.sink().Info(fmt.Sprintf("step %d/%d: %s", i+1, len(steps), step.Label)); err != nil {
			return r.abortLogging(rep, err)
		}

		started := r.now()
		output, actionErr := invoke(ctx, step.Action)
		res := Result{
			Label:     step.Label,
			StartedAt: started,
			EndedAt:   r.now(),
			Output:    output,
			Err:       actionErr,
			Ignored:   actionErr != nil && step.Ignorable,
		}
		rep.Results = append(rep.Results, res)
		elapsed := res.EndedAt.Sub(res.StartedAt).Round(time.Millisecond)

		switch {
		case actionErr == nil:
			if err := r.sink().Info(fmt.Sprintf("step succeeded: %s (%s)", step.Label, elapsed)); err != nil {
				return r.abortLogging(rep, err)
			}
			r.emit(StepEvent{Index: i, Label: step.Label, State: StepDone})

		case step.Ignorable:
			if err := r.sink().Warn(fmt.Sprintf("step failed (ignored): %s: %v", step.Label, actionErr)); err != nil {
				return r.abortLogging(rep, err)
			}
			r.emit(StepEvent{Index: i, Label: step.Label, State: StepIgnored, Detail: actionErr.Error()})

		default:
			if err := r.sink().Error(fmt.Sprintf("step failed: %s: %v", step.Label, actionErr)); err != nil {
				return r.abortLogging(rep, err)
			}
			r.emit(StepEvent{Index: i, Label: step.Label, State: StepFailed, Detail: actionErr.Error()})
			for j := i + 1; j < len(steps); j++ {
				r.emit(StepEvent{Index: j, Label: steps[j].Label, State: StepSkipped})
			}
			rep.Outcome = OutcomeHalted
			rep.HaltedAt = step.Label
			// Best effort: the halt itself is already on record.
			_ = r.sink().Error(fmt.Sprintf("run halted at: %s", step.Label))
			return rep, &StepError{Label: step.Label, Output: output, Err: actionErr}
		}
	}

	if err := r.sink().Info(fmt.Sprintf("run completed: %s", plan)); err != nil {
		return r.abortLogging(rep, err)
	}
	return rep, nil
}

func (r *Runner) abortLogging(rep *Report, err error) (*Report, error) {
	rep.Outcome = OutcomeLogUnavailable
	return rep, &SinkError{Err: err}
}

func (r *Runner) sink() Sink {
	if r.Sink != nil {
		return r.Sink
	}
	return discardSink{}
}

func (r *Runner) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now()
	}
	return RealClock{}.Now()
}

func (r *Runner) emit(ev StepEvent) {
	if r.OnStep != nil {
		r.OnStep(ev)
	}
}

// invoke runs the action, normalizing a panic to an ordinary failure so a
// misbehaving in-process action is handled by the same halt/ignore policy
// as a failing command.
func invoke(ctx context.Context, action Action) (output string, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("action panicked: %v", v)
		}
	}()
	if action == nil {
		return "", fmt.Errorf("step has no action")
	}
	return action(ctx)
}

type discardSink struct{}

func (discardSink) Info(string) error  { return nil }
func (discardSink) Warn(string) error  { return nil }
func (discardSink) Error(string) error { return nil }
