package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

var commandContext = exec.CommandContext

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	DurationTS int64  `json:"duration_ts"`
	TimeBase   string `json:"time_base"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := commandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countStreams("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countStreams("audio")
}

func (r Result) countStreams(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// AudioFrames returns the sample count and sample rate of the first audio
// stream. For PCM audio the stream's time base is 1/sample_rate, so
// duration_ts is the frame count; other time bases are rescaled.
func (r Result) AudioFrames() (int64, int, error) {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		rate, err := strconv.Atoi(strings.TrimSpace(stream.SampleRate))
		if err != nil || rate <= 0 {
			return 0, 0, fmt.Errorf("ffprobe: invalid sample rate %q", stream.SampleRate)
		}
		if stream.DurationTS > 0 {
			num, den, ok := parseRational(stream.TimeBase)
			if !ok || (num == 1 && den == int64(rate)) {
				return stream.DurationTS, rate, nil
			}
			frames := math.Round(float64(stream.DurationTS) * float64(num) / float64(den) * float64(rate))
			return int64(frames), rate, nil
		}
		seconds := parseFloat(stream.Duration)
		if math.IsNaN(seconds) || seconds <= 0 {
			seconds = r.DurationSeconds()
		}
		if math.IsNaN(seconds) || seconds <= 0 {
			return 0, 0, errors.New("ffprobe: audio stream has no duration")
		}
		return int64(math.Round(seconds * float64(rate))), rate, nil
	}
	return 0, 0, errors.New("ffprobe: no audio stream")
}

// AudioDuration returns the audio length in seconds as frames / sample rate.
func (r Result) AudioDuration() (float64, error) {
	frames, rate, err := r.AudioFrames()
	if err != nil {
		return 0, err
	}
	return float64(frames) / float64(rate), nil
}

// Prober measures audio durations with a fixed ffprobe binary.
type Prober struct {
	Binary string
}

// AudioDuration inspects path and returns its audio length in seconds.
func (p Prober) AudioDuration(ctx context.Context, path string) (float64, error) {
	result, err := Inspect(ctx, p.Binary, path)
	if err != nil {
		return 0, err
	}
	return result.AudioDuration()
}

func parseRational(value string) (int64, int64, bool) {
	num, den, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return 0, 0, false
	}
	n, err1 := strconv.ParseInt(num, 10, 64)
	d, err2 := strconv.ParseInt(den, 10, 64)
	if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
		return 0, 0, false
	}
	return n, d, true
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
