// Package testutil provides small filesystem helpers shared across the
// core's test suites.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// RemoveAll wraps os.RemoveAll and fails the test on failure.
func RemoveAll(t testing.TB, path string) {
	t.Helper()
	if err := os.RemoveAll(path); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

// TempTree creates a temporary directory tree for a test, registers its
// removal via t.Cleanup, and returns its path.
func TempTree(t testing.TB, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	t.Cleanup(func() { RemoveAll(t, dir) })
	return dir
}

// WriteFile creates path (and its parent directories) with contents.
func WriteFile(t testing.TB, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
