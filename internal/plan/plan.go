// Package plan loads and validates provisioning plans.
//
// A plan is a YAML file declaring an ordered list of named steps. Each
// step carries exactly one action (a shell command, a retrying download,
// or a clock check) and an explicit ignorable flag, so the continue/halt
// policy is a declared property of the step instead of an implicit
// "|| true" buried in a script.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"goldrun"
	"goldrun/internal/action"
)

// DefaultShell interprets command steps unless the plan or step says
// otherwise.
const DefaultShell = "/bin/sh"

// Plan is an ordered provisioning sequence for one image flavor.
type Plan struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Shell       string     `yaml:"shell,omitempty"` // default shell for all command steps
	Steps       []StepSpec `yaml:"steps"`
}

// StepSpec declares one step. Exactly one of Run, Download, or TimeSync
// must be set.
type StepSpec struct {
	Name      string        `yaml:"name"`
	Run       string        `yaml:"run,omitempty"`
	Shell     string        `yaml:"shell,omitempty"`
	Download  *DownloadSpec `yaml:"download,omitempty"`
	TimeSync  *TimeSyncSpec `yaml:"timesync,omitempty"`
	Ignorable bool          `yaml:"ignorable,omitempty"`
}

// DownloadSpec declares a retrying HTTP fetch.
type DownloadSpec struct {
	URL      string   `yaml:"url"`
	Dest     string   `yaml:"dest"`
	Attempts int      `yaml:"attempts,omitempty"`
	Delay    Duration `yaml:"delay,omitempty"`
}

// TimeSyncSpec declares a clock-offset check against an NTP server.
type TimeSyncSpec struct {
	Server    string   `yaml:"server"`
	MaxOffset Duration `yaml:"max_offset,omitempty"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "10s" or "5m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads and validates a plan file. Unknown fields are rejected so a
// typoed "ignoreable" cannot silently change halt policy.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates plan YAML.
func Parse(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse plan: empty document")
		}
		return nil, fmt.Errorf("parse plan: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the plan for structural errors.
func (p *Plan) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("plan has no name")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan %q has no steps", p.Name)
	}

	seen := make(map[string]bool, len(p.Steps))
	for i, s := range p.Steps {
		if s.Name == "" {
			return fmt.Errorf("step %d has no name", i+1)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate step name %q", s.Name)
		}
		seen[s.Name] = true

		if err := s.validateAction(); err != nil {
			return fmt.Errorf("step %q: %w", s.Name, err)
		}
	}
	return nil
}

func (s *StepSpec) validateAction() error {
	kinds := 0
	if s.Run != "" {
		kinds++
	}
	if s.Download != nil {
		kinds++
	}
	if s.TimeSync != nil {
		kinds++
	}
	switch kinds {
	case 0:
		return fmt.Errorf("no action (one of run, download, timesync required)")
	case 1:
	default:
		return fmt.Errorf("multiple actions (only one of run, download, timesync allowed)")
	}

	if s.Shell != "" && s.Run == "" {
		return fmt.Errorf("shell is only valid on run steps")
	}
	if d := s.Download; d != nil {
		if d.URL == "" {
			return fmt.Errorf("download has no url")
		}
		if d.Dest == "" {
			return fmt.Errorf("download has no dest")
		}
		if d.Attempts < 0 {
			return fmt.Errorf("download attempts must not be negative")
		}
	}
	if t := s.TimeSync; t != nil && t.Server == "" {
		return fmt.Errorf("timesync has no server")
	}
	return nil
}

// Compile lowers the plan to runnable steps, binding command steps to the
// given execer. Download and timesync steps always run on the host — a
// rehearsal container has no business writing host files or judging the
// host clock.
func (p *Plan) Compile(ex action.Execer) []goldrun.Step {
	steps := make([]goldrun.Step, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, goldrun.Step{
			Label:     s.Name,
			Ignorable: s.Ignorable,
			Action:    s.action(p.shell(s), ex),
		})
	}
	return steps
}

func (p *Plan) shell(s StepSpec) string {
	switch {
	case s.Shell != "":
		return s.Shell
	case p.Shell != "":
		return p.Shell
	default:
		return DefaultShell
	}
}

func (s *StepSpec) action(shell string, ex action.Execer) goldrun.Action {
	switch {
	case s.Run != "":
		return action.Command(ex, shell, s.Run)
	case s.Download != nil:
		return action.Download{
			URL:      s.Download.URL,
			Dest:     s.Download.Dest,
			Attempts: s.Download.Attempts,
			Delay:    time.Duration(s.Download.Delay),
		}.Action()
	default:
		return action.TimeSync{
			Server:    s.TimeSync.Server,
			MaxOffset: time.Duration(s.TimeSync.MaxOffset),
		}.Action()
	}
}
