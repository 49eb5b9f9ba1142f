package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
}

func TestLineFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")
	l, err := Open(path, WithNow(fixedNow))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	if err := l.Info("step 1/2: stop service"); err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if err := l.Warn("step failed (ignored): remove optional cert: not found"); err != nil {
		t.Fatalf("Warn() error = %v", err)
	}
	if err := l.Error("run halted at: stop service"); err != nil {
		t.Fatalf("Error() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	want := []string{
		"[2026-03-14 09:26:53] [INFO] step 1/2: stop service",
		"[2026-03-14 09:26:53] [WARN] step failed (ignored): remove optional cert: not found",
		"[2026-03-14 09:26:53] [ERROR] run halted at: stop service",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line[%d] = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestAppendOnlyAcrossReopens(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.log")

	for run := 1; run <= 2; run++ {
		l, err := Open(path, WithNow(fixedNow))
		if err != nil {
			t.Fatalf("Open() run %d: %v", run, err)
		}
		if err := l.Info("run started"); err != nil {
			t.Fatalf("Info() run %d: %v", run, err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("Close() run %d: %v", run, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if got := strings.Count(string(data), "run started"); got != 2 {
		t.Fatalf("entries after two runs = %d, want 2 (file was rewritten)", got)
	}
}

func TestEchoMirrorsLines(t *testing.T) {
	t.Parallel()

	var console strings.Builder
	l, err := Open(filepath.Join(t.TempDir(), "run.log"), WithNow(fixedNow), WithEcho(&console))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	if err := l.Warn("service already absent"); err != nil {
		t.Fatalf("Warn() error = %v", err)
	}
	if got := console.String(); !strings.Contains(got, "[WARN] service already absent") {
		t.Fatalf("echo = %q, want mirrored WARN line", got)
	}
}

func TestAppendFailsOnClosedFile(t *testing.T) {
	t.Parallel()

	l, err := Open(filepath.Join(t.TempDir(), "run.log"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	l.Close()

	if err := l.Info("too late"); err == nil {
		t.Fatal("expected append error on closed file")
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "run.log")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("log file not created: %v", err)
	}
}
