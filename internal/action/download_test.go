package action

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDownloadSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("agent payload"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "bundle", "agent.bin")
	d := Download{URL: srv.URL, Dest: dest, Attempts: 5, Delay: time.Millisecond}

	out, err := d.Action()(context.Background())
	if err != nil {
		t.Fatalf("download error = %v", err)
	}
	if !strings.Contains(out, "attempt 1/5") {
		t.Fatalf("output = %q", out)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(data) != "agent payload" {
		t.Fatalf("dest contents = %q", data)
	}
}

func TestDownloadRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var sleeps []time.Duration
	d := Download{
		URL:      srv.URL,
		Dest:     filepath.Join(t.TempDir(), "f"),
		Attempts: 5,
		Delay:    10 * time.Second,
		Sleep: func(_ context.Context, dur time.Duration) error {
			sleeps = append(sleeps, dur)
			return nil
		},
	}

	if _, err := d.Action()(context.Background()); err != nil {
		t.Fatalf("download error = %v", err)
	}
	if hits != 3 {
		t.Fatalf("hits = %d, want 3", hits)
	}
	// Fixed delay, no backoff growth.
	if len(sleeps) != 2 || sleeps[0] != 10*time.Second || sleeps[1] != 10*time.Second {
		t.Fatalf("sleeps = %v", sleeps)
	}
}

func TestDownloadExhaustsBudgetAndFailsOnce(t *testing.T) {
	t.Parallel()

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	d := Download{
		URL:      srv.URL,
		Dest:     filepath.Join(t.TempDir(), "f"),
		Attempts: 5,
		Sleep:    func(context.Context, time.Duration) error { return nil },
	}

	out, err := d.Action()(context.Background())
	if err == nil {
		t.Fatal("expected failure after exhausting retry budget")
	}
	if hits != 5 {
		t.Fatalf("hits = %d, want exactly the 5-attempt budget", hits)
	}
	if !strings.Contains(err.Error(), "5 attempts failed") {
		t.Fatalf("error = %v", err)
	}
	if !strings.Contains(out, "attempt 5/5") {
		t.Fatalf("output = %q", out)
	}
}

func TestDownloadCancelledDuringDelay(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	d := Download{
		URL:      srv.URL,
		Dest:     filepath.Join(t.TempDir(), "f"),
		Attempts: 5,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	if _, err := d.Action()(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestDownloadDefaults(t *testing.T) {
	t.Parallel()

	d := Download{}
	if got := d.Attempts; got != 0 {
		t.Fatalf("zero value Attempts = %d", got)
	}
	// Defaults apply at run time, not construction time.
	if DefaultAttempts != 5 {
		t.Fatalf("DefaultAttempts = %d, want 5", DefaultAttempts)
	}
	if DefaultDelay != 10*time.Second {
		t.Fatalf("DefaultDelay = %v", DefaultDelay)
	}
}
