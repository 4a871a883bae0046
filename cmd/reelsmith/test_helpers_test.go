package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/testsupport"
)

// Stub tools mirror the argument layouts reelsmith passes to the real ones.
const (
	stubManim = `#!/bin/sh
media="$3"
base=$(basename "$4" .py)
mkdir -p "$media/videos/$base/1080p60"
printf clip > "$media/videos/$base/1080p60/$5.mp4"
`
	stubFailingManim = `#!/bin/sh
echo "boom rendering $5" >&2
exit 1
`
	stubFFmpeg = `#!/bin/sh
for last; do :; done
printf merged > "$last"
`
	stubFFprobe = `#!/bin/sh
cat <<'JSON'
{"streams":[{"index":0,"codec_type":"video","codec_name":"h264"},{"index":1,"codec_type":"audio","codec_name":"pcm_s16le","sample_rate":"24000","duration_ts":48000,"time_base":"1/24000"}],"format":{"duration":"2.000000"}}
JSON
`
	stubTTS = `#!/bin/sh
if [ "$1" = "--list-voices" ]; then
	printf 'Available voices:\n1. af_bella\n2. am_adam\n'
	exit 0
fi
cat > /dev/null
printf 'RIFFwave' > "$4"
`
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	mediaDir   string
	voiceDir   string
	outputDir  string
	unitDir    string
}

type stubSet struct {
	manim   string
	ffmpeg  string
	ffprobe string
	tts     string
}

func defaultStubs() stubSet {
	return stubSet{manim: stubManim, ffmpeg: stubFFmpeg, ffprobe: stubFFprobe, tts: stubTTS}
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	return setupCLITestEnvWithStubs(t, defaultStubs())
}

// setupCLITestEnvWithStubs writes a config file pointing at stub tools. An
// empty script leaves that tool missing.
func setupCLITestEnvWithStubs(t *testing.T, stubs stubSet) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t,
		testsupport.WithThreads(2),
		testsupport.WithoutLogFile(),
		testsupport.WithStubTool(testsupport.ToolRenderer, stubs.manim),
		testsupport.WithStubTool(testsupport.ToolFFmpeg, stubs.ffmpeg),
		testsupport.WithStubTool(testsupport.ToolFFprobe, stubs.ffprobe),
		testsupport.WithStubTool(testsupport.ToolTTS, stubs.tts),
	)
	cfg.Logging.Level = "warn"

	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(base, "reelsmith.toml"),
		mediaDir:   cfg.Paths.MediaDir,
		voiceDir:   cfg.Paths.VoiceDir,
		outputDir:  cfg.Paths.OutputDir,
		unitDir:    filepath.Join(base, "units"),
	}
	if err := os.MkdirAll(env.unitDir, 0o755); err != nil {
		t.Fatalf("mkdir units: %v", err)
	}
	testsupport.WriteConfigFile(t, cfg, env.configPath)
	return env
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
