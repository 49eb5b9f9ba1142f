// Package action provides the built-in step actions: shell commands,
// retrying downloads, and clock verification. Each action is
// self-contained; policy that only one operation needs (the download's
// bounded retry) lives inside that action, never in the runner.
package action

import (
	"context"
	"fmt"
	"os/exec"

	"goldrun"
)

// Execer runs one command step's script. The local implementation uses
// os/exec; the sandbox implementation execs inside a container. Plans
// compile against this interface so the same plan runs in either place.
type Execer interface {
	Exec(ctx context.Context, shell, script string) (output string, err error)
}

// Local runs scripts on the host via the configured shell.
type Local struct{}

func (Local) Exec(ctx context.Context, shell, script string) (string, error) {
	cmd := exec.CommandContext(ctx, shell, "-c", script)
	out, err := cmd.CombinedOutput()
	if err != nil {
		// Start failures (missing shell) and non-zero exits land here
		// alike; both are ordinary step failures.
		return string(out), fmt.Errorf("run %q: %w", script, err)
	}
	return string(out), nil
}

// Command binds a script to an execer as a runnable step action.
func Command(ex Execer, shell, script string) goldrun.Action {
	return func(ctx context.Context) (string, error) {
		return ex.Exec(ctx, shell, script)
	}
}
