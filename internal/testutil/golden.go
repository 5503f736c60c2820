// Package testutil holds shared test helpers.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// Golden compares rendered output against testdata/<name>.golden. Run the
// tests with GOLDEN_UPDATE set to rewrite the golden files.
func Golden(t *testing.T, name, got string) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")
	if os.Getenv("GOLDEN_UPDATE") != "" {
		if err := os.MkdirAll("testdata", 0755); err != nil {
			t.Fatalf("failed to create testdata dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(got), 0644); err != nil {
			t.Fatalf("failed to update %s: %v", path, err)
		}
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v\nGot:\n%s", path, err, got)
	}
	if !bytes.Equal([]byte(got), want) {
		t.Errorf("rendering mismatch for %s\nWant:\n%s\nGot:\n%s", name, want, got)
	}
}
