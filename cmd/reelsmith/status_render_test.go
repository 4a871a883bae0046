package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"reelsmith/internal/deps"
	"reelsmith/internal/preflight"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Renderer", statusError, "not found", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Renderer:", "[ERROR] not found")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusOK, "Ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "Renderer", Available: false},
		{Name: "FFmpeg", Available: true, Command: "ffmpeg"},
		{Name: "Speech synthesizer", Available: false, Optional: true, Detail: `binary "kokoro-tts" not found`},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], "[ERROR] not available") {
		t.Fatalf("expected error detail first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (command: ffmpeg)") {
		t.Fatalf("expected ready detail second, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "[WARN]") || !strings.Contains(lines[2], "(optional)") {
		t.Fatalf("expected optional warning third, got %q", lines[2])
	}
	if !strings.Contains(lines[3], "Missing dependencies:") || !strings.Contains(lines[3], "Renderer") {
		t.Fatalf("expected missing summary last, got %q", lines[3])
	}
}

func TestPreflightLines(t *testing.T) {
	lines := preflightLines([]preflight.Result{
		{Name: "Media directory", Passed: true, Detail: "/tmp/media"},
		{Name: "Media free space", Passed: false, Detail: "1.0 GiB free"},
	}, false)
	if !strings.Contains(lines[0], "[OK]") || !strings.Contains(lines[1], "[ERROR] 1.0 GiB free") {
		t.Fatalf("unexpected lines %q", lines)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderTableFooterAndKeyValues(t *testing.T) {
	table := renderTableWithFooter([]string{"Scene", "Time"}, [][]string{{"Intro", "1s"}}, []string{"total", "1s"}, []columnAlignment{alignLeft, alignRight})
	requireContains(t, table, "Intro")
	requireContains(t, strings.ToLower(table), "total")

	kv := renderKeyValues([][2]string{{"Output", "/tmp/out.mp4"}})
	requireContains(t, kv, "/tmp/out.mp4")
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty table for no headers")
	}
}
