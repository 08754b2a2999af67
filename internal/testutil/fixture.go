// Package testutil locates and loads the shared metadata fixtures.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bazelbuild/rules_go/go/tools/bazel"

	"martianoff/dbridge/internal/metadata"
)

const fixtureDir = "internal/testutil/testdata"

// Fixture returns the path of a fixture file.
// In Bazel tests, it uses runfiles to find the file.
// Outside of Bazel, it falls back to finding go.mod and using the module root.
func Fixture(t testing.TB, name string) string {
	t.Helper()
	rel := filepath.Join(fixtureDir, name)

	if p, err := bazel.Runfile(rel); err == nil {
		if _, statErr := os.Stat(p); statErr == nil {
			return p
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, rel)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	t.Fatalf("fixture %s: module root not found from %s", name, cwd)
	return ""
}

// LoadModule loads a fixture metadata dump.
func LoadModule(t testing.TB, name string) *metadata.Module {
	t.Helper()
	m, err := metadata.Load(Fixture(t, name))
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return m
}

// FindType returns the named type of a fixture module.
func FindType(t testing.TB, m *metadata.Module, fullName string) *metadata.TypeDescriptor {
	t.Helper()
	td, ok := m.Lookup(fullName)
	if !ok {
		t.Fatalf("fixture %s has no type %s", m.Name, fullName)
	}
	return td
}
