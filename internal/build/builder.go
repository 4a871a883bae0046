package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"reelsmith/internal/config"
	"reelsmith/internal/deps"
	"reelsmith/internal/logging"
	"reelsmith/internal/merge"
	"reelsmith/internal/preflight"
	"reelsmith/internal/render"
	"reelsmith/internal/scenes"
	"reelsmith/internal/services"
	"reelsmith/internal/services/manim"
	"reelsmith/internal/stageexec"
)

// ErrBusy reports that another build of the same unit holds its lock.
var ErrBusy = errors.New("build already running")

// Mode selects which stages run.
type Mode int

const (
	// ModeFull locates, renders, collects and merges.
	ModeFull Mode = iota
	// ModeRenderOnly stops after rendering.
	ModeRenderOnly
	// ModeMergeOnly reuses existing clips and skips rendering.
	ModeMergeOnly
)

func (m Mode) String() string {
	switch m {
	case ModeRenderOnly:
		return "render"
	case ModeMergeOnly:
		return "merge"
	default:
		return "build"
	}
}

// Request describes one build.
type Request struct {
	Unit    string
	Quality config.QualityLevel
	// Threads overrides render.threads and the encoder thread count when positive.
	Threads int
	Mode    Mode
}

// Result describes a finished or failed build.
type Result struct {
	RunID      string
	Unit       scenes.Unit
	Preset     config.Preset
	Scenes     []scenes.Scene
	Duplicates []string
	Render     render.Report
	Collection merge.Collection
	Merge      merge.Summary
	Elapsed    time.Duration
}

// DepsChecker verifies the external tools a mode needs.
type DepsChecker func(cfg *config.Config, mode Mode) error

// Builder runs builds against a config.
type Builder struct {
	cfg       *config.Config
	renderer  render.Renderer
	merger    *merge.Merger
	checkDeps DepsChecker
	observer  render.Observer
	base      *slog.Logger
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithRenderer replaces the scene renderer.
func WithRenderer(r render.Renderer) Option {
	return func(b *Builder) {
		if r != nil {
			b.renderer = r
		}
	}
}

// WithMerger replaces the clip opener and encoder.
func WithMerger(opener merge.ClipOpener, encoder merge.Encoder) Option {
	return func(b *Builder) {
		b.merger = merge.NewMerger(opener, encoder, b.base)
	}
}

// WithDepsChecker replaces the external tool check.
func WithDepsChecker(fn DepsChecker) Option {
	return func(b *Builder) {
		b.checkDeps = fn
	}
}

// WithRenderObserver registers a callback invoked after each render job.
func WithRenderObserver(fn render.Observer) Option {
	return func(b *Builder) {
		b.observer = fn
	}
}

// New constructs a builder wired to the configured external tools.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Builder {
	base := logger
	logger = logging.NewComponentLogger(base, "build")
	ffprobe := deps.ResolveFFprobe(cfg.Merge.FFmpegBinary, cfg.FFprobe.Binary)
	b := &Builder{
		cfg: cfg,
		renderer: render.ManimRenderer{
			CLI:            manim.NewCLI(manim.WithBinary(cfg.Render.Binary)),
			MediaDir:       cfg.Paths.MediaDir,
			DisableCaching: cfg.Render.DisableCaching,
			Logger:         logging.NewComponentLogger(base, "manim"),
		},
		merger: merge.NewMerger(
			merge.ProbeOpener{Binary: ffprobe},
			merge.FFmpegEncoder{Binary: cfg.Merge.FFmpegBinary},
			base,
		),
		checkDeps: CheckDeps,
		base:      base,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// CheckDeps requires every non-optional tool, except the renderer when the
// mode does not render.
func CheckDeps(cfg *config.Config, mode Mode) error {
	statuses := preflight.CheckSystemDeps(cfg)
	if mode == ModeMergeOnly {
		filtered := statuses[:0]
		for _, status := range statuses {
			if status.Name != "Renderer" {
				filtered = append(filtered, status)
			}
		}
		statuses = filtered
	}
	return deps.RequireAvailable(statuses)
}

// OutputPath returns where the merged video for unit is written.
func (b *Builder) OutputPath(unit scenes.Unit) string {
	return filepath.Join(b.cfg.Paths.OutputDir, unit.Basename+b.cfg.Render.VideoExt)
}

// Run executes the stages selected by req.Mode. The returned Result is
// populated as far as the run got, including on failure.
func (b *Builder) Run(ctx context.Context, req Request) (result Result, err error) {
	result = Result{RunID: uuid.NewString()}
	started := time.Now()
	defer func() { result.Elapsed = time.Since(started) }()

	ctx = services.WithRunID(ctx, result.RunID)
	logger := logging.WithContext(ctx, b.logger)

	preset, ok := req.Quality.Preset()
	if !ok {
		return result, services.Wrap(services.ErrConfiguration, "build", "resolve quality", fmt.Sprintf("unknown quality %q", req.Quality), nil)
	}
	result.Preset = preset
	threads := req.Threads
	if threads <= 0 {
		threads = b.cfg.Render.Threads
	}
	mergeThreads := b.cfg.MergeThreads()
	if req.Threads > 0 {
		mergeThreads = req.Threads
	}

	unit, err := scenes.ResolveUnit(req.Unit, b.cfg.Render.SourceExt)
	if err != nil {
		return result, err
	}
	result.Unit = unit

	if b.checkDeps != nil {
		if err := b.checkDeps(b.cfg, req.Mode); err != nil {
			return result, err
		}
	}

	if err := os.MkdirAll(b.cfg.Paths.MediaDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrConfiguration, "build", "prepare media dir", b.cfg.Paths.MediaDir, err)
	}
	lock := flock.New(filepath.Join(b.cfg.Paths.MediaDir, ".reelsmith-"+unit.Basename+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return result, services.Wrap(services.ErrConfiguration, "build", "acquire lock", unit.Basename, err)
	}
	if !locked {
		return result, services.Wrap(services.ErrConfiguration, "build", "acquire lock", unit.Basename, ErrBusy)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release build lock", logging.Error(err))
		}
	}()

	logger.Info("build started",
		logging.String(logging.FieldEventType, "build_start"),
		logging.String(logging.FieldUnit, unit.Basename),
		logging.String("mode", req.Mode.String()),
		logging.String("quality", req.Quality.String()),
		logging.Int("threads", threads),
	)

	var ordering scenes.Ordering
	err = stageexec.Run(ctx, stageexec.Options{Logger: b.logger, StageName: "locate", Attrs: []logging.Attr{logging.String("source", unit.Source)}},
		func(ctx context.Context, logger *slog.Logger) error {
			located, err := scenes.LocateFile(unit.Source, b.cfg.Render.SceneMarker)
			if err != nil {
				return err
			}
			result.Scenes = located.Scenes
			result.Duplicates = located.Duplicates
			for _, name := range located.Duplicates {
				logging.WarnWithContext(logger, "duplicate scene declaration", "scene_duplicate",
					logging.String(logging.FieldScene, name),
					logging.String(logging.FieldImpact, "the later declaration is rendered"),
					logging.String(logging.FieldErrorHint, "rename one of the scenes"),
				)
			}
			if len(located.Scenes) == 0 {
				return services.Wrap(services.ErrDiscovery, "locate", "scan", fmt.Sprintf("no scenes deriving from %s in %s", b.cfg.Render.SceneMarker, unit.Source), nil)
			}
			ordering = located.Ordering()
			logger.Info("scenes located", logging.Int("scenes", len(located.Scenes)))
			return nil
		})
	if err != nil {
		return result, err
	}

	if req.Mode != ModeMergeOnly {
		err = stageexec.Run(ctx, stageexec.Options{Logger: b.logger, StageName: "render", Attrs: []logging.Attr{logging.Int("scenes", len(result.Scenes))}},
			func(ctx context.Context, logger *slog.Logger) error {
				opts := []render.Option{render.WithVideoExt(b.cfg.Render.VideoExt)}
				if b.observer != nil {
					opts = append(opts, render.WithObserver(b.observer))
				}
				scheduler := render.NewScheduler(b.renderer, threads, b.cfg.Paths.MediaDir, b.base, opts...)
				report, err := scheduler.Run(ctx, unit, result.Scenes, preset)
				result.Render = report
				return err
			})
		if err != nil {
			return result, err
		}
	}
	if req.Mode == ModeRenderOnly {
		b.logComplete(logger, result, started)
		return result, nil
	}

	output := b.OutputPath(unit)
	err = stageexec.Run(ctx, stageexec.Options{Logger: b.logger, StageName: "merge", Attrs: []logging.Attr{logging.String("output", output)}},
		func(ctx context.Context, logger *slog.Logger) error {
			dir := render.ArtifactDir(b.cfg.Paths.MediaDir, unit, preset)
			collection, err := merge.Collect(dir, b.cfg.Render.VideoExt, ordering, logging.WithContext(ctx, b.base))
			result.Collection = collection
			if err != nil {
				return err
			}
			summary, err := b.merger.Merge(ctx, collection.Artifacts, output, merge.Options{
				Preset:     preset,
				Codec:      b.cfg.Merge.Codec,
				AudioCodec: b.cfg.Merge.AudioCodec,
				Threads:    mergeThreads,
			})
			result.Merge = summary
			return err
		})
	if err != nil {
		return result, err
	}

	b.logComplete(logger, result, started)
	return result, nil
}

func (b *Builder) logComplete(logger *slog.Logger, result Result, started time.Time) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "build_complete"),
		logging.String(logging.FieldUnit, result.Unit.Basename),
		logging.Int("scenes", len(result.Scenes)),
		logging.Duration("elapsed", time.Since(started)),
	}
	if result.Merge.Output != "" {
		attrs = append(attrs, logging.String("output", result.Merge.Output))
	}
	logger.Info("build complete", logging.Args(attrs...)...)
}

