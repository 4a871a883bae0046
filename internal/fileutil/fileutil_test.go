package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCommitFile(t *testing.T) {
	dir := t.TempDir()
	tmp := filepath.Join(dir, ".clip-123.wav")
	dst := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(tmp, []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}

	if err := CommitFile(tmp, dst); err != nil {
		t.Fatalf("CommitFile: %v", err)
	}
	if _, err := os.Stat(tmp); !os.IsNotExist(err) {
		t.Fatalf("expected tmp to be gone, got %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read dst: %v", err)
	}
	if string(data) != "RIFF" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestCommitFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	if err := CommitFile(filepath.Join(dir, "missing"), filepath.Join(dir, "dst")); err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestNonEmptyFile(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.wav")
	full := filepath.Join(dir, "full.wav")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if NonEmptyFile(empty) {
		t.Fatal("empty file reported as present")
	}
	if !NonEmptyFile(full) {
		t.Fatal("expected full file to be present")
	}
	if NonEmptyFile(dir) {
		t.Fatal("directory reported as file")
	}
	if NonEmptyFile(filepath.Join(dir, "missing")) {
		t.Fatal("missing file reported as present")
	}
}
