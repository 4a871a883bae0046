package render

import (
	"context"
	"log/slog"

	"reelsmith/internal/logging"
	"reelsmith/internal/services/manim"
)

// ManimRenderer renders jobs with the manim command-line renderer.
type ManimRenderer struct {
	CLI            *manim.CLI
	MediaDir       string
	DisableCaching bool
	// Logger receives renderer output at debug level.
	Logger *slog.Logger
}

// Render runs the renderer for job.
func (r ManimRenderer) Render(ctx context.Context, job Job) error {
	logger := logging.WithContext(ctx, r.Logger)
	return r.CLI.Render(ctx, manim.Request{
		Source:         job.Unit.Source,
		Scene:          job.Scene.Name,
		QualityFlag:    job.Preset.RenderFlag,
		MediaDir:       r.MediaDir,
		DisableCaching: r.DisableCaching,
	}, func(line string) {
		logger.Debug("renderer output", logging.String("line", line))
	})
}
