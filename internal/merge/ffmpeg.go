package merge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/services/ffmpeg"
)

// ProbeOpener opens clips from disk and reads their duration with ffprobe.
type ProbeOpener struct {
	Binary string
}

// Open keeps the file open until Close and rejects files without a video
// stream.
func (o ProbeOpener) Open(ctx context.Context, path string) (Clip, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	result, err := ffprobe.Inspect(ctx, o.Binary, path)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if result.VideoStreamCount() == 0 {
		_ = file.Close()
		return nil, fmt.Errorf("%s has no video stream", path)
	}
	seconds := result.DurationSeconds()
	return &fileClip{
		file:     file,
		path:     path,
		duration: time.Duration(seconds * float64(time.Second)),
	}, nil
}

type fileClip struct {
	file     *os.File
	path     string
	duration time.Duration
}

func (c *fileClip) Path() string            { return c.path }
func (c *fileClip) Duration() time.Duration { return c.duration }
func (c *fileClip) Close() error            { return c.file.Close() }

// FFmpegEncoder concatenates clips with the ffmpeg concat demuxer.
type FFmpegEncoder struct {
	Binary string
}

// Concat writes a concat list next to output, encodes, and removes the list.
func (e FFmpegEncoder) Concat(ctx context.Context, clips []Clip, output string, opts Options) error {
	if len(clips) == 0 {
		return errors.New("no clips")
	}
	list, err := os.CreateTemp(filepath.Dir(output), ".concat-*.txt")
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer os.Remove(list.Name())

	paths := make([]string, len(clips))
	for i, clip := range clips {
		abs, err := filepath.Abs(clip.Path())
		if err != nil {
			_ = list.Close()
			return err
		}
		paths[i] = abs
	}
	if err := ffmpeg.WriteList(list, paths); err != nil {
		_ = list.Close()
		return fmt.Errorf("write concat list: %w", err)
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("close concat list: %w", err)
	}

	return ffmpeg.Concat(ctx, e.Binary, ffmpeg.ConcatRequest{
		ListFile:   list.Name(),
		Output:     output,
		Format:     opts.Format,
		Codec:      opts.Codec,
		AudioCodec: opts.AudioCodec,
		Preset:     opts.Preset.EncodePreset,
		Threads:    opts.Threads,
	})
}
