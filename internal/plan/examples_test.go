package plan

import (
	"path/filepath"
	"testing"
)

// Every shipped example plan must stay loadable.
func TestShippedExamplePlansAreValid(t *testing.T) {
	t.Parallel()

	paths, err := filepath.Glob(filepath.Join("..", "..", "examples", "plans", "*.yaml"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("no example plans found")
	}

	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			t.Parallel()

			p, err := Load(path)
			if err != nil {
				t.Fatalf("Load(%s) error = %v", path, err)
			}
			if len(p.Steps) == 0 {
				t.Fatalf("%s has no steps", path)
			}
		})
	}
}
