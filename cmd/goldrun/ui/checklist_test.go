package ui

import (
	"strings"
	"sync"
	"testing"

	"goldrun"
)

func TestPlainStepLine(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		ev   goldrun.StepEvent
		want string
	}{
		{
			name: "running",
			ev:   goldrun.StepEvent{Label: "stop service", State: goldrun.StepRunning},
			want: "  [->] stop service",
		},
		{
			name: "done",
			ev:   goldrun.StepEvent{Label: "reset machine id", State: goldrun.StepDone},
			want: "  [ok] reset machine id",
		},
		{
			name: "ignored with detail",
			ev:   goldrun.StepEvent{Label: "remove optional cert", State: goldrun.StepIgnored, Detail: "not found"},
			want: "  [!] remove optional cert (not found)",
		},
		{
			name: "failed with detail",
			ev:   goldrun.StepEvent{Label: "stop service", State: goldrun.StepFailed, Detail: "exit status 1"},
			want: "  [x] stop service (exit status 1)",
		},
		{
			name: "skipped",
			ev:   goldrun.StepEvent{Label: "clear logs", State: goldrun.StepSkipped},
			want: "  [--] clear logs",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := PlainStepLine(tc.ev); got != tc.want {
				t.Fatalf("PlainStepLine() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestChecklistRendersAllSteps(t *testing.T) {
	t.Parallel()

	var out syncBuffer
	c := NewChecklist(&out, []string{"stop service", "clear logs"})
	c.OnStep(goldrun.StepEvent{Index: 0, Label: "stop service", State: goldrun.StepRunning})
	c.OnStep(goldrun.StepEvent{Index: 0, Label: "stop service", State: goldrun.StepDone})
	c.OnStep(goldrun.StepEvent{Index: 1, Label: "clear logs", State: goldrun.StepFailed, Detail: "exit status 1"})
	c.Close()

	got := out.String()
	if !strings.Contains(got, "stop service") || !strings.Contains(got, "clear logs") {
		t.Fatalf("output missing step labels: %q", got)
	}
	if !strings.Contains(got, "exit status 1") {
		t.Fatalf("output missing failure detail: %q", got)
	}
}

func TestChecklistIgnoresOutOfRangeEvents(t *testing.T) {
	t.Parallel()

	var out syncBuffer
	c := NewChecklist(&out, []string{"only"})
	defer c.Close()

	// Must not panic.
	c.OnStep(goldrun.StepEvent{Index: 5, Label: "ghost", State: goldrun.StepDone})
	c.OnStep(goldrun.StepEvent{Index: -1, Label: "ghost", State: goldrun.StepDone})
}

// syncBuffer is a strings.Builder safe for the spinner goroutine.
type syncBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}
