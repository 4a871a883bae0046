package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"reelsmith/internal/services"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.mediaDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for existing file, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateDefaultsWhenMissing(t *testing.T) {
	setupCLITestEnv(t)
	// Default paths are relative to the working directory.
	work := t.TempDir()
	t.Chdir(work)
	missing := filepath.Join(work, "absent.toml")

	out, _, err := runCLI(t, []string{"config", "validate"}, missing)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "defaults were used")
	if _, err := os.Stat(filepath.Join(work, "media")); err != nil {
		t.Fatalf("expected default media dir under the working directory: %v", err)
	}
}

func TestInvalidConfigIsConfigurationError(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[render]\nquality = \"ultra\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, err := runCLI(t, []string{"scenes", "anything"}, env.configPath)
	if code := services.ExitCode(err); code != services.ExitConfiguration {
		t.Fatalf("exit code = %d, want %d (err %v)", code, services.ExitConfiguration, err)
	}
}
