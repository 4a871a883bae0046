package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	MediaDir  string `toml:"media_dir"`
	VoiceDir  string `toml:"voice_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Render contains configuration for the external scene renderer.
type Render struct {
	Binary         string `toml:"binary"`
	Threads        int    `toml:"threads"`
	Quality        string `toml:"quality"`
	SceneMarker    string `toml:"scene_marker"`
	SourceExt      string `toml:"source_ext"`
	VideoExt       string `toml:"video_ext"`
	DisableCaching bool   `toml:"disable_caching"`
}

// Merge contains configuration for the final concatenation encode.
type Merge struct {
	FFmpegBinary string `toml:"ffmpeg_binary"`
	Codec        string `toml:"codec"`
	AudioCodec   string `toml:"audio_codec"`
	// Threads is the encoder thread count. Zero follows render.threads.
	Threads int `toml:"threads"`
}

// Voice contains configuration for speech synthesis and the narration cache.
type Voice struct {
	DefaultVoice string `toml:"default_voice"`
	TTSBinary    string `toml:"tts_binary"`
	// TTSArgs is the argument template for synthesis. {voice} and {output} are
	// substituted; the narration text is written to stdin.
	TTSArgs        []string `toml:"tts_args"`
	ListVoicesArgs []string `toml:"list_voices_args"`
	AudioExt       string   `toml:"audio_ext"`
	Factor         float64  `toml:"factor"`
	Index          bool     `toml:"index"`
}

// FFprobe contains configuration for media inspection.
type FFprobe struct {
	Binary string `toml:"binary"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Watch contains configuration for watch mode.
type Watch struct {
	DebounceMS int `toml:"debounce_ms"`
}

// Config encapsulates all configuration values for reelsmith.
//
// Configuration sections by subsystem:
//   - Paths: media, voice cache, output and log directories
//   - Render: renderer binary, worker count, quality tier, scene marker
//   - Merge: encoder binary and codecs for the final concatenation
//   - Voice: synthesis command, default voice and cache settings
//   - FFprobe: media inspection binary
//   - Logging: log format and level
//   - Watch: rebuild debounce for watch mode
type Config struct {
	Paths   Paths   `toml:"paths"`
	Render  Render  `toml:"render"`
	Merge   Merge   `toml:"merge"`
	Voice   Voice   `toml:"voice"`
	FFprobe FFprobe `toml:"ffprobe"`
	Logging Logging `toml:"logging"`
	Watch   Watch   `toml:"watch"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// A project file in the working directory takes precedence over the user config,
// so each video project can carry its own settings.
func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the media, voice cache and output directories. The
// log directory is created only when file logging is configured.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.MediaDir, c.Paths.VoiceDir, c.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LogDir) != "" {
		if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log directory %q: %w", c.Paths.LogDir, err)
		}
	}
	return nil
}

// QualityLevel returns the configured default quality tier.
func (c *Config) QualityLevel() QualityLevel {
	level, err := ParseQuality(c.Render.Quality)
	if err != nil {
		return QualityMedium
	}
	return level
}

// MergeThreads returns the encoder thread count, following the render worker
// count when merge.threads is unset.
func (c *Config) MergeThreads() int {
	if c.Merge.Threads > 0 {
		return c.Merge.Threads
	}
	return c.Render.Threads
}

// VoiceIndexPath returns the location of the voice cache index database.
func (c *Config) VoiceIndexPath() string {
	if !c.Voice.Index {
		return ""
	}
	return filepath.Join(c.Paths.VoiceDir, voiceIndexName)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
