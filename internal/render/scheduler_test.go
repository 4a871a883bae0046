package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/scenes"
	"reelsmith/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var mediumPreset = config.Preset{Level: config.QualityMedium, RenderFlag: "-qh", Resolution: "1080p60", EncodePreset: "medium"}

func testUnit() scenes.Unit {
	return scenes.Unit{Name: "chapter1", Source: "/src/chapter1.py", Basename: "chapter1"}
}

func sceneList(names ...string) []scenes.Scene {
	out := make([]scenes.Scene, len(names))
	for i, name := range names {
		out[i] = scenes.Scene{Name: name, Order: (i + 1) * 10}
	}
	return out
}

// writingRenderer creates the artifact for every job unless the scene is
// listed in fail.
func writingRenderer(t *testing.T, delay time.Duration, fail map[string]bool) RendererFunc {
	t.Helper()
	return func(ctx context.Context, job Job) error {
		time.Sleep(delay)
		if fail[job.Scene.Name] {
			return errors.New("renderer exited with status 1")
		}
		if err := os.MkdirAll(filepath.Dir(job.Artifact), 0o755); err != nil {
			return err
		}
		return os.WriteFile(job.Artifact, []byte("clip"), 0o644)
	}
}

func TestRunRendersEverySceneOnce(t *testing.T) {
	mediaDir := t.TempDir()
	var calls sync.Map
	base := writingRenderer(t, 0, nil)
	renderer := RendererFunc(func(ctx context.Context, job Job) error {
		if _, loaded := calls.LoadOrStore(job.Scene.Name, true); loaded {
			t.Errorf("scene %s rendered twice", job.Scene.Name)
		}
		if scene, ok := services.SceneFromContext(ctx); !ok || scene != job.Scene.Name {
			t.Errorf("expected scene in context, got %q", scene)
		}
		return base(ctx, job)
	})

	var observed atomic.Int32
	scheduler := NewScheduler(renderer, 2, mediaDir, logging.NewNop(), WithObserver(func(JobResult) {
		observed.Add(1)
	}))

	report, err := scheduler.Run(context.Background(), testUnit(), sceneList("Intro", "Body", "Outro", "Credits"), mediumPreset)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if observed.Load() != 4 {
		t.Fatalf("expected observer to see 4 jobs, got %d", observed.Load())
	}

	dir := filepath.Join(mediaDir, "videos", "chapter1", "1080p60")
	want := []string{
		filepath.Join(dir, "Intro.mp4"),
		filepath.Join(dir, "Body.mp4"),
		filepath.Join(dir, "Outro.mp4"),
		filepath.Join(dir, "Credits.mp4"),
	}
	if diff := cmp.Diff(want, report.Artifacts()); diff != "" {
		t.Fatalf("unexpected artifacts (-want +got):\n%s", diff)
	}
	for _, path := range want {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected artifact %s: %v", path, err)
		}
	}
}

func TestRunFailureWaitsForSiblings(t *testing.T) {
	mediaDir := t.TempDir()
	var completed atomic.Int32
	base := writingRenderer(t, 0, nil)
	renderer := RendererFunc(func(ctx context.Context, job Job) error {
		if job.Scene.Name == "Broken" {
			return errors.New("exit status 1")
		}
		time.Sleep(50 * time.Millisecond)
		if err := base(ctx, job); err != nil {
			return err
		}
		completed.Add(1)
		return nil
	})

	scheduler := NewScheduler(renderer, 3, mediaDir, logging.NewNop())
	report, err := scheduler.Run(context.Background(), testUnit(), sceneList("Intro", "Broken", "Outro"), mediumPreset)
	if err == nil {
		t.Fatal("expected render error")
	}
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected ErrRender marker, got %v", err)
	}
	if completed.Load() != 2 {
		t.Fatalf("expected both siblings to finish before the error surfaced, got %d", completed.Load())
	}
	if len(report.Artifacts()) != 2 {
		t.Fatalf("expected successful artifacts to be kept, got %v", report.Artifacts())
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Job.Scene.Name != "Broken" {
		t.Fatalf("unexpected failures %+v", failed)
	}
	if report.Results[1].Succeeded() {
		t.Fatal("expected result for Broken to record the failure")
	}
}

func TestRunReturnsFirstFailureByCompletion(t *testing.T) {
	renderer := RendererFunc(func(ctx context.Context, job Job) error {
		if job.Scene.Name == "Slow" {
			time.Sleep(80 * time.Millisecond)
		}
		return errors.New(job.Scene.Name + " failed")
	})
	scheduler := NewScheduler(renderer, 2, t.TempDir(), logging.NewNop())
	_, err := scheduler.Run(context.Background(), testUnit(), sceneList("Slow", "Fast"), mediumPreset)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !containsAll(got, "Fast failed") {
		t.Fatalf("expected the earliest finishing failure, got %v", err)
	}
}

func TestRunBoundsConcurrency(t *testing.T) {
	var (
		current atomic.Int32
		peak    atomic.Int32
	)
	base := writingRenderer(t, 0, nil)
	renderer := RendererFunc(func(ctx context.Context, job Job) error {
		n := current.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		return base(ctx, job)
	})

	scheduler := NewScheduler(renderer, 2, t.TempDir(), logging.NewNop())
	if _, err := scheduler.Run(context.Background(), testUnit(), sceneList("A", "B", "C", "D", "E", "F"), mediumPreset); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent renders, saw %d", peak.Load())
	}
}

func TestRunMissingArtifactIsFailure(t *testing.T) {
	renderer := RendererFunc(func(context.Context, Job) error { return nil })
	scheduler := NewScheduler(renderer, 1, t.TempDir(), logging.NewNop())
	_, err := scheduler.Run(context.Background(), testUnit(), sceneList("Ghost"), mediumPreset)
	if !errors.Is(err, services.ErrRender) {
		t.Fatalf("expected render error for missing artifact, got %v", err)
	}
}

func TestRunEmptyListIsNoop(t *testing.T) {
	scheduler := NewScheduler(RendererFunc(func(context.Context, Job) error {
		t.Fatal("renderer must not be called")
		return nil
	}), 0, t.TempDir(), nil)
	if scheduler.Workers() != DefaultWorkers {
		t.Fatalf("expected default workers, got %d", scheduler.Workers())
	}
	report, err := scheduler.Run(context.Background(), testUnit(), nil, mediumPreset)
	if err != nil || len(report.Results) != 0 {
		t.Fatalf("unexpected result %+v %v", report, err)
	}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
