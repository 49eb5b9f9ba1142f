package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"goldrun"
)

var spinFrames = [...]string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Checklist renders a run's steps as a live terminal checklist on one
// writer (normally stderr). Pending steps are muted, the running step
// shows a braille spinner, finished steps show their verdict. It is fed
// by the runner's step observer.
type Checklist struct {
	out io.Writer

	mu            sync.Mutex
	labels        []string
	states        []goldrun.StepState
	details       []string
	renderedLines int
	frame         int

	stop chan struct{}
	once sync.Once
}

// NewChecklist prints the initial pending list and starts the spinner.
func NewChecklist(out io.Writer, labels []string) *Checklist {
	c := &Checklist{
		out:     out,
		labels:  labels,
		states:  make([]goldrun.StepState, len(labels)),
		details: make([]string, len(labels)),
		stop:    make(chan struct{}),
	}

	c.mu.Lock()
	for i := range c.labels {
		icon, label := c.stepStyle(i)
		fmt.Fprintf(c.out, "  %s %s\n", icon, label)
	}
	c.renderedLines = len(c.labels)
	c.mu.Unlock()

	go c.spin()
	return c
}

// OnStep updates one step's state and redraws. Safe for use as the
// runner's OnStep callback.
func (c *Checklist) OnStep(ev goldrun.StepEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev.Index < 0 || ev.Index >= len(c.states) {
		return
	}
	c.states[ev.Index] = ev.State
	c.details[ev.Index] = ev.Detail
	c.redraw()
}

// Close stops the spinner and leaves the final verdict on screen.
func (c *Checklist) Close() {
	c.once.Do(func() {
		close(c.stop)
	})
	c.mu.Lock()
	c.redraw()
	c.mu.Unlock()
}

func (c *Checklist) spin() {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.frame = (c.frame + 1) % len(spinFrames)
			c.redraw()
			c.mu.Unlock()
		}
	}
}

// redraw reprints all step lines in place. Caller must hold c.mu.
func (c *Checklist) redraw() {
	if c.renderedLines > 0 {
		fmt.Fprintf(c.out, "\033[%dA", c.renderedLines)
	}
	for i := range c.labels {
		icon, label := c.stepStyle(i)
		line := fmt.Sprintf("  %s %s", icon, label)
		if d := c.details[i]; d != "" {
			line += " " + Muted("("+d+")")
		}
		fmt.Fprintf(c.out, "\r%s\033[K\n", line)
	}
	c.renderedLines = len(c.labels)
}

func (c *Checklist) stepStyle(i int) (icon, label string) {
	switch c.states[i] {
	case goldrun.StepRunning:
		return Accent(spinFrames[c.frame]), c.labels[i]
	case goldrun.StepDone:
		return Success("✓"), c.labels[i]
	case goldrun.StepIgnored:
		return Warn("!"), c.labels[i]
	case goldrun.StepFailed:
		return ErrorStyle.Render("✗"), ErrorStyle.Render(c.labels[i])
	case goldrun.StepSkipped:
		return Muted("-"), Muted(c.labels[i])
	default:
		return Muted("●"), Muted(c.labels[i])
	}
}

// PlainStepLine renders one step event as a plain log-friendly line for
// non-interactive runs, where redrawing in place would garble output.
func PlainStepLine(ev goldrun.StepEvent) string {
	line := "  " + plainIcon(ev.State) + " " + ev.Label
	if ev.Detail != "" {
		line += " (" + ev.Detail + ")"
	}
	return line
}

func plainIcon(s goldrun.StepState) string {
	switch s {
	case goldrun.StepRunning:
		return "[->]"
	case goldrun.StepDone:
		return "[ok]"
	case goldrun.StepIgnored:
		return "[!]"
	case goldrun.StepFailed:
		return "[x]"
	case goldrun.StepSkipped:
		return "[--]"
	default:
		return "[  ]"
	}
}
