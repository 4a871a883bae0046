package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateVoice(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Threads < 1 {
		return errors.New("render.threads must be at least 1")
	}
	if _, err := ParseQuality(c.Render.Quality); err != nil {
		return fmt.Errorf("render.quality: %w", err)
	}
	if strings.ContainsAny(c.Render.SceneMarker, " \t.()") {
		return fmt.Errorf("render.scene_marker %q must be a bare class name", c.Render.SceneMarker)
	}
	if c.Merge.Threads < 0 {
		return errors.New("merge.threads must be zero or positive")
	}
	return nil
}

func (c *Config) validateVoice() error {
	if c.Voice.Factor < 0 {
		return errors.New("voice.factor must not be negative")
	}
	hasOutput := false
	for _, arg := range c.Voice.TTSArgs {
		if strings.Contains(arg, "{output}") {
			hasOutput = true
			break
		}
	}
	if !hasOutput {
		return errors.New("voice.tts_args must reference {output}")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}
