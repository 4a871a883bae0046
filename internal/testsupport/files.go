package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(strings.Repeat("B", int(size))), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteUnit writes a content unit source declaring one marker-derived class
// per scene name and returns its path.
func WriteUnit(t testing.TB, dir, basename, marker string, sceneNames ...string) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("from manim import *\n")
	b.WriteString("from TTSScene import " + marker + "\n\n")
	for _, name := range sceneNames {
		b.WriteString("\nclass " + name + "(" + marker + "):\n")
		b.WriteString("    def construct(self):\n")
		b.WriteString("        self.wait(1)\n")
	}
	path := filepath.Join(dir, basename+".py")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write unit %s: %v", path, err)
	}
	return path
}
