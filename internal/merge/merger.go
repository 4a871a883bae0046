package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/services/ffmpeg"
)

// Clip is an opened scene clip.
type Clip interface {
	Path() string
	Duration() time.Duration
	Close() error
}

// ClipOpener opens clips for concatenation.
type ClipOpener interface {
	Open(ctx context.Context, path string) (Clip, error)
}

// Encoder writes the concatenation of clips to output.
type Encoder interface {
	Concat(ctx context.Context, clips []Clip, output string, opts Options) error
}

// Options controls the concatenation encode.
type Options struct {
	Preset     config.Preset
	Codec      string
	AudioCodec string
	Threads    int

	// Format is the ffmpeg muxer; Merge derives it from the output
	// extension when empty.
	Format string
}

// Summary describes a finished merge.
type Summary struct {
	Clips    int
	Duration time.Duration
	Output   string
}

// Merger joins clips into one video.
type Merger struct {
	opener  ClipOpener
	encoder Encoder
	logger  *slog.Logger
}

// NewMerger constructs a merger.
func NewMerger(opener ClipOpener, encoder Encoder, logger *slog.Logger) *Merger {
	return &Merger{
		opener:  opener,
		encoder: encoder,
		logger:  logging.NewComponentLogger(logger, "merge"),
	}
}

// Merge opens every artifact in order, concatenates them into output and
// closes every opened clip before returning. output is replaced atomically;
// on failure any previous file at output is left untouched.
func (m *Merger) Merge(ctx context.Context, artifacts []Artifact, output string, opts Options) (Summary, error) {
	if len(artifacts) == 0 {
		return Summary{}, services.Wrap(services.ErrEmptyArtifactSet, "merge", "concat", "no clips to merge", nil)
	}
	logger := logging.WithContext(ctx, m.logger)

	clips := make([]Clip, 0, len(artifacts))
	defer func() {
		if closeErr := closeAll(clips); closeErr != nil {
			logging.WarnWithContext(logger, "clip close failed", "clip_close_failed",
				logging.Error(closeErr),
				logging.String(logging.FieldImpact, "file handles released late"),
			)
		}
	}()

	var total time.Duration
	for _, artifact := range artifacts {
		clip, openErr := m.opener.Open(ctx, artifact.Path)
		if openErr != nil {
			return Summary{}, services.Wrap(services.ErrMerge, "merge", "open clip", artifact.Scene, openErr)
		}
		clips = append(clips, clip)
		total += clip.Duration()
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return Summary{}, services.Wrap(services.ErrMerge, "merge", "prepare output", filepath.Dir(output), err)
	}
	pending, err := renameio.NewPendingFile(output, renameio.WithPermissions(0o644))
	if err != nil {
		return Summary{}, services.Wrap(services.ErrMerge, "merge", "create pending output", output, err)
	}
	defer func() {
		if cleanupErr := pending.Cleanup(); cleanupErr != nil {
			logger.Debug("cleanup pending output", logging.Error(cleanupErr))
		}
	}()

	logger.Info("merge started",
		logging.String(logging.FieldEventType, "merge_started"),
		logging.Int("clips", len(clips)),
		logging.String("preset", opts.Preset.EncodePreset),
		logging.Int("threads", opts.Threads),
		logging.String("output", output),
	)
	if opts.Format == "" {
		opts.Format = ffmpeg.ContainerFormat(output)
	}
	started := time.Now()
	if err := m.encoder.Concat(ctx, clips, pending.Name(), opts); err != nil {
		return Summary{}, services.Wrap(services.ErrMerge, "merge", "concat", fmt.Sprintf("%d clips", len(clips)), err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return Summary{}, services.Wrap(services.ErrMerge, "merge", "commit output", output, err)
	}

	summary := Summary{Clips: len(clips), Duration: total, Output: output}
	logger.Info("merge complete",
		logging.String(logging.FieldEventType, "merge_complete"),
		logging.Int("clips", summary.Clips),
		logging.Duration("video_duration", summary.Duration),
		logging.Duration("elapsed", time.Since(started)),
		logging.String("output", output),
	)
	return summary, nil
}

func closeAll(clips []Clip) error {
	var errs []error
	for _, clip := range clips {
		if err := clip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", clip.Path(), err))
		}
	}
	return errors.Join(errs...)
}
