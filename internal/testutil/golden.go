// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

// Run `go test ./... -update` to rewrite golden files from current output.
var update = flag.Bool("update", false, "update golden files")

// GoldenPath returns the path of name under the package's testdata directory.
func GoldenPath(name string) string {
	return filepath.Join("testdata", name)
}

// AssertGolden fails t when got differs from testdata/name.
func AssertGolden(t testing.TB, got, name string) {
	t.Helper()

	path := GoldenPath(name)

	if *update {
		writeGolden(t, path, got)
		return
	}

	want, err := os.ReadFile(path)

	switch {
	case os.IsNotExist(err):
		t.Fatalf("golden file %s does not exist; run with -update to create it", path)
	case err != nil:
		t.Fatalf("read golden file %s: %v", path, err)
	case got != string(want):
		t.Errorf("%s mismatch\n\ngot:\n%s\n\nwant:\n%s\n\nrun with -update to refresh golden files", path, got, want)
	}
}

func writeGolden(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create testdata directory: %v", err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("update golden file %s: %v", path, err)
	}

	t.Logf("updated golden file: %s", path)
}
