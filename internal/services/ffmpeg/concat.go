package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// ConcatRequest describes one concatenation encode.
type ConcatRequest struct {
	// ListFile is a concat demuxer script, as written by WriteList.
	ListFile   string
	Output     string
	Format     string // muxer name; empty means mp4
	Codec      string
	AudioCodec string
	Preset     string
	Threads    int
}

// Args builds the ffmpeg argument list for req.
func Args(req ConcatRequest) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "concat",
		"-safe", "0",
		"-i", req.ListFile,
		"-c:v", req.Codec,
	}
	if preset := strings.TrimSpace(req.Preset); preset != "" {
		args = append(args, "-preset", preset)
	}
	if req.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(req.Threads))
	}
	args = append(args,
		"-pix_fmt", "yuv420p",
		"-c:a", req.AudioCodec,
	)
	// The output may be a temp path without an extension, so the container
	// is always named explicitly.
	format := req.Format
	if format == "" {
		format = "mp4"
	}
	if format == "mp4" || format == "mov" {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, "-f", format, req.Output)
	return args
}

// ContainerFormat maps an output path to the ffmpeg muxer for its extension.
// Unknown extensions use the extension itself as the muxer name.
func ContainerFormat(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "", "mp4", "m4v":
		return "mp4"
	case "mkv":
		return "matroska"
	case "qt":
		return "mov"
	default:
		return ext
	}
}

// Concat runs ffmpeg for req and blocks until it exits.
func Concat(ctx context.Context, binary string, req ConcatRequest) error {
	if strings.TrimSpace(req.ListFile) == "" {
		return errors.New("concat list required")
	}
	if strings.TrimSpace(req.Output) == "" {
		return errors.New("output path required")
	}
	if req.Codec == "" {
		req.Codec = "libx264"
	}
	if req.AudioCodec == "" {
		req.AudioCodec = "aac"
	}
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := commandContext(ctx, binary, Args(req)...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat: %w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// WriteList writes a concat demuxer script naming each clip in order.
func WriteList(w io.Writer, clips []string) error {
	if _, err := io.WriteString(w, "ffconcat version 1.0\n"); err != nil {
		return err
	}
	for _, clip := range clips {
		if _, err := fmt.Fprintf(w, "file %s\n", quote(clip)); err != nil {
			return err
		}
	}
	return nil
}

// quote escapes a path for the concat script, which uses single quotes with
// '\'' for embedded quotes.
func quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}
