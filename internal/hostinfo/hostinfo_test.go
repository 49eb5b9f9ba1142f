package hostinfo

import (
	"strings"
	"testing"
)

func TestCollectPopulatesSummary(t *testing.T) {
	t.Parallel()

	info := Collect()
	if info.OS == "" {
		t.Fatal("OS not collected")
	}
	if info.Arch == "" {
		t.Fatal("Arch not collected")
	}

	summary := info.Summary()
	if !strings.HasPrefix(summary, "host ") {
		t.Fatalf("summary = %q", summary)
	}
	if !strings.Contains(summary, info.OS) {
		t.Fatalf("summary %q missing OS %q", summary, info.OS)
	}
}
