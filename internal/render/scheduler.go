package render

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/scenes"
	"reelsmith/internal/services"
)

// DefaultWorkers is the pool size used when the caller supplies none.
const DefaultWorkers = 6

// Job is one scene render.
type Job struct {
	Unit   scenes.Unit
	Scene  scenes.Scene
	Preset config.Preset
	// Artifact is where the renderer is expected to write the scene clip.
	Artifact string
}

// Renderer renders a single scene. Implementations block until the external
// renderer exits.
type Renderer interface {
	Render(ctx context.Context, job Job) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, job Job) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// JobResult is the typed outcome of one job.
type JobResult struct {
	Job      Job
	Err      error
	Started  time.Time
	Elapsed  time.Duration
	Finished int
}

// Succeeded reports whether the job produced its artifact.
func (r JobResult) Succeeded() bool {
	return r.Err == nil
}

// Report collects every job result in submission (authoring) order.
type Report struct {
	Results []JobResult
}

// Failed returns the failing results in completion order.
func (r Report) Failed() []JobResult {
	var failed []JobResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	sortByFinished(failed)
	return failed
}

// Artifacts returns the artifact paths of successful jobs in authoring order.
func (r Report) Artifacts() []string {
	paths := make([]string, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Err == nil {
			paths = append(paths, res.Job.Artifact)
		}
	}
	return paths
}

// Observer is notified after each job finishes. Calls are serialized.
type Observer func(JobResult)

// Scheduler fans render jobs out across a bounded worker pool.
type Scheduler struct {
	renderer Renderer
	workers  int
	mediaDir string
	videoExt string
	observer Observer
	logger   *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver registers a callback invoked after each job.
func WithObserver(fn Observer) Option {
	return func(s *Scheduler) {
		s.observer = fn
	}
}

// WithVideoExt overrides the expected artifact extension.
func WithVideoExt(ext string) Option {
	return func(s *Scheduler) {
		if ext != "" {
			s.videoExt = ext
		}
	}
}

// NewScheduler constructs a scheduler. Worker counts below one fall back to
// DefaultWorkers.
func NewScheduler(renderer Renderer, workers int, mediaDir string, logger *slog.Logger, opts ...Option) *Scheduler {
	if workers < 1 {
		workers = DefaultWorkers
	}
	s := &Scheduler{
		renderer: renderer,
		workers:  workers,
		mediaDir: mediaDir,
		videoExt: ".mp4",
		logger:   logging.NewComponentLogger(logger, "render"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workers returns the pool size.
func (s *Scheduler) Workers() int {
	return s.workers
}

// ArtifactDir returns the directory the renderer writes clips for unit at preset.
func ArtifactDir(mediaDir string, unit scenes.Unit, preset config.Preset) string {
	return filepath.Join(mediaDir, "videos", unit.Basename, preset.Resolution)
}

// Run renders every scene exactly once. All jobs are submitted before any is
// awaited, and a failure never stops its siblings: the first failure, in
// completion order, is returned only after every job has finished. Artifacts
// of successful jobs are left in place either way.
func (s *Scheduler) Run(ctx context.Context, unit scenes.Unit, list []scenes.Scene, preset config.Preset) (Report, error) {
	report := Report{Results: make([]JobResult, len(list))}
	if len(list) == 0 {
		return report, nil
	}

	dir := ArtifactDir(s.mediaDir, unit, preset)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("render dispatch",
		logging.String(logging.FieldEventType, "render_dispatch"),
		logging.String(logging.FieldUnit, unit.Basename),
		logging.Int("scenes", len(list)),
		logging.Int("workers", s.workers),
		logging.String("resolution", preset.Resolution),
	)

	var (
		group    errgroup.Group
		mu       sync.Mutex
		finished int
	)
	group.SetLimit(s.workers)

	for i, scene := range list {
		job := Job{
			Unit:     unit,
			Scene:    scene,
			Preset:   preset,
			Artifact: filepath.Join(dir, scene.Name+s.videoExt),
		}
		group.Go(func() error {
			result := s.runJob(ctx, job)

			mu.Lock()
			finished++
			result.Finished = finished
			report.Results[i] = result
			if s.observer != nil {
				s.observer(result)
			}
			mu.Unlock()

			return result.Err
		})
	}

	// Wait returns only after every goroutine has exited.
	if waitErr := group.Wait(); waitErr != nil {
		failed := report.Failed()
		err := waitErr
		if len(failed) > 0 {
			err = failed[0].Err
		}
		logging.ErrorWithContext(logger, "render failed",
			"render_failed",
			logging.Int("failed", len(failed)),
			logging.Int("scenes", len(list)),
			logging.String(logging.FieldErrorHint, "inspect the renderer output above; successful clips were kept"),
			logging.Error(err),
		)
		return report, err
	}
	logger.Info("render complete",
		logging.String(logging.FieldEventType, "render_complete"),
		logging.Int("scenes", len(list)),
	)
	return report, nil
}

func (s *Scheduler) runJob(ctx context.Context, job Job) JobResult {
	ctx = services.WithScene(ctx, job.Scene.Name)
	logger := logging.WithContext(ctx, s.logger)

	result := JobResult{Job: job, Started: time.Now()}
	logger.Debug("scene render started", logging.String("artifact", job.Artifact))

	err := s.renderer.Render(ctx, job)
	if err == nil {
		if info, statErr := os.Stat(job.Artifact); statErr != nil || !info.Mode().IsRegular() {
			err = fmt.Errorf("renderer exited cleanly but produced no artifact at %s", job.Artifact)
		}
	}
	result.Elapsed = time.Since(result.Started)

	if err != nil {
		if !errors.Is(err, services.ErrRender) {
			err = services.Wrap(services.ErrRender, "render", job.Scene.Name, "scene render failed", err)
		}
		result.Err = err
		logger.Warn("scene render failed",
			logging.String(logging.FieldEventType, "scene_render_failed"),
			logging.String(logging.FieldImpact, "build will fail after remaining scenes finish"),
			logging.String(logging.FieldErrorHint, "fix the scene and rebuild"),
			logging.Duration("elapsed", result.Elapsed),
			logging.Error(err),
		)
		return result
	}

	logger.Info("scene rendered",
		logging.String(logging.FieldEventType, "scene_rendered"),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result
}

func sortByFinished(results []JobResult) {
	slices.SortFunc(results, func(a, b JobResult) int {
		return cmp.Compare(a.Finished, b.Finished)
	})
}
