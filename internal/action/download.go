package action

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"goldrun"
)

const (
	// DefaultAttempts is 5: enough to ride out transient mirror flakiness
	// during an image build without stalling it for long.
	DefaultAttempts = 5
	// DefaultDelay is 10s between attempts; fixed, no backoff growth.
	DefaultDelay = 10 * time.Second
)

// Download fetches a URL to a destination file, retrying a bounded number
// of times with a fixed delay. The action reports failure to the runner
// once, after its budget is exhausted; the runner never retries it again.
type Download struct {
	Client   *http.Client
	URL      string
	Dest     string
	Attempts int
	Delay    time.Duration

	// Sleep overrides the inter-attempt delay, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Action returns the runnable step action.
func (d Download) Action() goldrun.Action {
	return func(ctx context.Context) (string, error) {
		return d.run(ctx)
	}
}

func (d Download) run(ctx context.Context) (string, error) {
	attempts := d.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	delay := d.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	var log strings.Builder
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := d.sleep(ctx, delay); err != nil {
				return log.String(), fmt.Errorf("download %s: %w", d.URL, err)
			}
		}

		n, err := d.fetch(ctx)
		if err == nil {
			fmt.Fprintf(&log, "attempt %d/%d: fetched %d bytes to %s\n", attempt, attempts, n, d.Dest)
			return log.String(), nil
		}
		lastErr = err
		fmt.Fprintf(&log, "attempt %d/%d: %v\n", attempt, attempts, err)
	}
	return log.String(), fmt.Errorf("download %s: %d attempts failed: %w", d.URL, attempts, lastErr)
}

func (d Download) fetch(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client().Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(d.Dest), 0o755); err != nil {
		return 0, fmt.Errorf("create destination directory: %w", err)
	}
	f, err := os.Create(d.Dest)
	if err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write destination: %w", err)
	}
	return n, nil
}

func (d Download) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}

func (d Download) sleep(ctx context.Context, delay time.Duration) error {
	if d.Sleep != nil {
		return d.Sleep(ctx, delay)
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
