package main

import (
	"encoding/json"
	"errors"
	"testing"

	"reelsmith/internal/services"
)

func TestCheckReportsDependencies(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check", "--format", "json"}, env.configPath)
	var view checkView
	if decodeErr := json.Unmarshal([]byte(out), &view); decodeErr != nil {
		t.Fatalf("decode: %v\n%s", decodeErr, out)
	}
	if len(view.Dependencies) != 4 {
		t.Fatalf("expected 4 dependencies, got %d", len(view.Dependencies))
	}
	for _, dep := range view.Dependencies {
		if !dep.Available {
			t.Fatalf("expected %s to be available: %s", dep.Name, dep.Detail)
		}
	}
	// Free space depends on the host, so only the tool side is asserted.
	if err != nil && !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckMissingRequiredTool(t *testing.T) {
	stubs := defaultStubs()
	stubs.manim = ""
	env := setupCLITestEnvWithStubs(t, stubs)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	requireContains(t, out, "== Dependencies ==")
	requireContains(t, out, "Missing dependencies:")
	requireContains(t, out, "Renderer")
}
