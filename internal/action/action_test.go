package action

import (
	"context"
	"strings"
	"testing"
)

func TestLocalExecCapturesCombinedOutput(t *testing.T) {
	t.Parallel()

	out, err := Local{}.Exec(context.Background(), "/bin/sh", "echo to-stdout; echo to-stderr >&2")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}
	if !strings.Contains(out, "to-stdout") || !strings.Contains(out, "to-stderr") {
		t.Fatalf("combined output = %q", out)
	}
}

func TestLocalExecNonZeroExit(t *testing.T) {
	t.Parallel()

	out, err := Local{}.Exec(context.Background(), "/bin/sh", "echo before-failure; exit 3")
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}
	if !strings.Contains(out, "before-failure") {
		t.Fatalf("output before failure lost: %q", out)
	}
}

func TestLocalExecMissingShell(t *testing.T) {
	t.Parallel()

	// Failure to start is an ordinary step failure, same as non-zero exit.
	if _, err := (Local{}).Exec(context.Background(), "/no/such/shell", "true"); err == nil {
		t.Fatal("expected error for missing shell")
	}
}

func TestCommandBindsExecer(t *testing.T) {
	t.Parallel()

	var gotShell, gotScript string
	ex := execerFunc(func(_ context.Context, shell, script string) (string, error) {
		gotShell, gotScript = shell, script
		return "ran", nil
	})

	out, err := Command(ex, "/bin/sh", "systemctl stop telemetry")(context.Background())
	if err != nil {
		t.Fatalf("action error = %v", err)
	}
	if out != "ran" || gotShell != "/bin/sh" || gotScript != "systemctl stop telemetry" {
		t.Fatalf("got out=%q shell=%q script=%q", out, gotShell, gotScript)
	}
}

type execerFunc func(ctx context.Context, shell, script string) (string, error)

func (f execerFunc) Exec(ctx context.Context, shell, script string) (string, error) {
	return f(ctx, shell, script)
}
