package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"reelsmith/internal/config"
)

// Tool names accepted by WithStubTool.
const (
	ToolRenderer = "manim"
	ToolFFmpeg   = "ffmpeg"
	ToolFFprobe  = "ffprobe"
	ToolTTS      = "kokoro-tts"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Paths live under one base directory; see BaseDir.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.MediaDir = filepath.Join(base, "media")
	cfgVal.Paths.VoiceDir = filepath.Join(base, "voices")
	cfgVal.Paths.OutputDir = filepath.Join(base, "out")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithThreads overrides the render worker count.
func WithThreads(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Threads = n
	}
}

// WithQuality overrides the default quality tier.
func WithQuality(quality string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Quality = quality
	}
}

// WithoutLogFile keeps log output on stderr only.
func WithoutLogFile() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.LogDir = ""
	}
}

// WithStubbedBinaries writes no-op executables for the provided names and
// prepends their directory to PATH. If names is empty, every external tool
// is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{ToolRenderer, ToolFFmpeg, ToolFFprobe, ToolTTS}
		}
		binDir := b.binDir()
		for _, name := range names {
			writeScript(b.t, filepath.Join(binDir, name), "#!/bin/sh\nexit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// WithStubTool writes script as the named tool and points the config at its
// absolute path. An empty script leaves the configured path dangling, which
// simulates a missing binary.
func WithStubTool(name, script string) ConfigOption {
	return func(b *configBuilder) {
		target := filepath.Join(b.binDir(), name)
		if script != "" {
			writeScript(b.t, target, script)
		}
		switch name {
		case ToolRenderer:
			b.cfg.Render.Binary = target
		case ToolFFmpeg:
			b.cfg.Merge.FFmpegBinary = target
		case ToolFFprobe:
			b.cfg.FFprobe.Binary = target
		case ToolTTS:
			b.cfg.Voice.TTSBinary = target
		default:
			b.t.Fatalf("unknown tool %q", name)
		}
	}
}

func (b *configBuilder) binDir() string {
	dir := filepath.Join(b.baseDir, "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		b.t.Fatalf("mkdir bin dir: %v", err)
	}
	return dir
}

func writeScript(t testing.TB, path, script string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", filepath.Base(path), err)
	}
}

// WriteConfigFile encodes cfg as TOML at path, so CLI tests can load the same
// settings through --config.
func WriteConfigFile(t testing.TB, cfg *config.Config, path string) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.MediaDir)
}
