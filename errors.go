package goldrun

import "fmt"

// StepError reports a fatal step failure that halted the run.
type StepError struct {
	Label  string
	Output string
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q failed: %v", e.Label, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// SinkError reports that the durable run log could not be appended to.
// It aborts the run no matter which step was executing.
type SinkError struct {
	Err error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("run log unavailable: %v", e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
