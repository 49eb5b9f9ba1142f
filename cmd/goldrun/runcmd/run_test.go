package runcmd

import "testing"

func TestCmdShape(t *testing.T) {
	debug := false
	cmd := Cmd(&debug)

	if cmd.Use != "run <plan.yaml>" {
		t.Fatalf("unexpected use: %q", cmd.Use)
	}
	if err := cmd.Args(cmd, []string{}); err == nil {
		t.Fatal("expected args validation error for missing plan")
	}
	if err := cmd.Args(cmd, []string{"a", "b"}); err == nil {
		t.Fatal("expected args validation error for too many args")
	}
}

func TestCmdFlags(t *testing.T) {
	debug := false
	cmd := Cmd(&debug)

	for _, name := range []string{"log", "sandbox", "otlp-endpoint", "no-history"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("missing flag %q", name)
		}
	}

	// --sandbox without a value rehearses in the default image.
	if got := cmd.Flags().Lookup("sandbox").NoOptDefVal; got == "" {
		t.Fatal("sandbox flag should default to an image when given without value")
	}
}
