package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeMerge()
	c.normalizeVoice()
	c.normalizeLogging()
	if c.Watch.DebounceMS <= 0 {
		c.Watch.DebounceMS = defaultWatchDebounceMS
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.MediaDir) == "" {
		c.Paths.MediaDir = defaultMediaDir
	}
	if c.Paths.MediaDir, err = expandPath(c.Paths.MediaDir); err != nil {
		return fmt.Errorf("paths.media_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.VoiceDir) == "" {
		c.Paths.VoiceDir = defaultVoiceDir
	}
	if c.Paths.VoiceDir, err = expandPath(c.Paths.VoiceDir); err != nil {
		return fmt.Errorf("paths.voice_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.Binary = strings.TrimSpace(c.Render.Binary)
	if c.Render.Binary == "" {
		c.Render.Binary = defaultRenderBinary
	}
	if c.Render.Threads <= 0 {
		c.Render.Threads = defaultRenderThreads
	}
	c.Render.Quality = strings.ToLower(strings.TrimSpace(c.Render.Quality))
	if c.Render.Quality == "" {
		c.Render.Quality = defaultQuality
	}
	c.Render.SceneMarker = strings.TrimSpace(c.Render.SceneMarker)
	if c.Render.SceneMarker == "" {
		c.Render.SceneMarker = defaultSceneMarker
	}
	c.Render.SourceExt = normalizeExt(c.Render.SourceExt, defaultSourceExt)
	c.Render.VideoExt = normalizeExt(c.Render.VideoExt, defaultVideoExt)
}

func (c *Config) normalizeMerge() {
	c.Merge.FFmpegBinary = strings.TrimSpace(c.Merge.FFmpegBinary)
	if c.Merge.FFmpegBinary == "" {
		c.Merge.FFmpegBinary = defaultFFmpegBinary
	}
	c.Merge.Codec = strings.TrimSpace(c.Merge.Codec)
	if c.Merge.Codec == "" {
		c.Merge.Codec = defaultVideoCodec
	}
	c.Merge.AudioCodec = strings.TrimSpace(c.Merge.AudioCodec)
	if c.Merge.AudioCodec == "" {
		c.Merge.AudioCodec = defaultAudioCodec
	}
	if c.Merge.Threads < 0 {
		c.Merge.Threads = 0
	}
	c.FFprobe.Binary = strings.TrimSpace(c.FFprobe.Binary)
	if c.FFprobe.Binary == "" {
		c.FFprobe.Binary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeVoice() {
	c.Voice.DefaultVoice = strings.TrimSpace(c.Voice.DefaultVoice)
	if c.Voice.DefaultVoice == "" {
		if value, ok := os.LookupEnv("REELSMITH_VOICE"); ok && strings.TrimSpace(value) != "" {
			c.Voice.DefaultVoice = strings.TrimSpace(value)
		} else {
			c.Voice.DefaultVoice = defaultVoice
		}
	}
	c.Voice.TTSBinary = strings.TrimSpace(c.Voice.TTSBinary)
	if c.Voice.TTSBinary == "" {
		c.Voice.TTSBinary = defaultTTSBinary
	}
	if len(c.Voice.TTSArgs) == 0 {
		c.Voice.TTSArgs = defaultTTSArgs()
	}
	c.Voice.AudioExt = normalizeExt(c.Voice.AudioExt, defaultAudioExt)
	if c.Voice.Factor == 0 {
		c.Voice.Factor = defaultVoiceFactor
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeExt(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, ".") {
		value = "." + value
	}
	return value
}
