package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"reelsmith/internal/narration"
)

const helloKey = "5b823ac3637d969d046477d10b68bcd3"

func TestVoiceKey(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"voice", "key", "--voice", "am_adam", "Hello,", "world."}, env.configPath)
	if err != nil {
		t.Fatalf("voice key: %v", err)
	}
	requireContains(t, out, "Key: "+helloKey)
	requireContains(t, out, filepath.Join(env.voiceDir, helloKey+".wav"))
	if _, err := os.Stat(filepath.Join(env.voiceDir, helloKey+".wav")); !os.IsNotExist(err) {
		t.Fatalf("voice key must not synthesize, stat err = %v", err)
	}
}

func TestVoiceSayCachesAndReportsCueSheet(t *testing.T) {
	env := setupCLITestEnv(t)

	args := []string{"voice", "say", "Hello, world.", "--action", "Write:0.5", "--offset", "0.25", "--format", "json"}
	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("voice say: %v", err)
	}
	var view sayView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if view.Key != helloKey || view.Voice != "am_adam" {
		t.Fatalf("unexpected key %q voice %q", view.Key, view.Voice)
	}
	if view.Duration != 2 {
		t.Fatalf("duration = %v, want 2", view.Duration)
	}
	// The hold covers what is left of the clip after the offset.
	if view.Hold != 1.75 {
		t.Fatalf("hold = %v, want 1.75", view.Hold)
	}
	kinds := make([]narration.EventKind, 0, len(view.Events))
	for _, ev := range view.Events {
		kinds = append(kinds, ev.Kind)
	}
	want := []narration.EventKind{narration.EventSound, narration.EventPlay, narration.EventWait}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("event kinds mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(view.Path); err != nil {
		t.Fatalf("expected cached clip: %v", err)
	}

	out, _, err = runCLI(t, []string{"voice", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("voice list: %v", err)
	}
	requireContains(t, out, helloKey)
	requireContains(t, out, "Hello, world.")
	requireContains(t, strings.ToLower(out), "1 clips")
}

func TestVoiceSayTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"voice", "say", "--voice", "af_bella", "Second", "line"}, env.configPath)
	if err != nil {
		t.Fatalf("voice say: %v", err)
	}
	requireContains(t, out, "af_bella")
	requireContains(t, out, "2.00s")
	requireContains(t, out, "sound")
}

func TestVoiceSayFactorAndEarlyOffset(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"voice", "say", "Hello, world.", "--offset=-0.5", "--format", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("voice say: %v", err)
	}
	var view sayView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if view.Hold != 2.5 || view.Events[0].Start != -0.5 {
		t.Fatalf("early offset: hold = %v start = %v, want 2.5 and -0.5", view.Hold, view.Events[0].Start)
	}

	out, _, err = runCLI(t, []string{"voice", "say", "Hello, world.", "--factor", "0", "--format", "json"}, env.configPath)
	if err != nil {
		t.Fatalf("voice say: %v", err)
	}
	view = sayView{}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if view.Factor != 0 || view.Hold != 0 {
		t.Fatalf("explicit zero factor: factor = %v hold = %v, want 0", view.Factor, view.Hold)
	}
}

func TestVoiceSayRejectsBadAction(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"voice", "say", "Hi", "--action", "Write:soon"}, env.configPath)
	if err == nil {
		t.Fatal("expected error for malformed action")
	}
}

func TestVoiceListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"voice", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("voice list: %v", err)
	}
	requireContains(t, out, "No cached narration")
}

func TestVoiceVoices(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"voice", "voices"}, env.configPath)
	if err != nil {
		t.Fatalf("voice voices: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if diff := cmp.Diff([]string{"af_bella", "am_adam (default)"}, lines); diff != "" {
		t.Fatalf("voices mismatch (-want +got):\n%s", diff)
	}
}
