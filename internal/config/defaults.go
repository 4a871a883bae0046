package config

const (
	defaultConfigPath      = "~/.config/reelsmith/config.toml"
	projectConfigName      = "reelsmith.toml"
	voiceIndexName         = "index.db"
	defaultMediaDir        = "media"
	defaultVoiceDir        = "voices"
	defaultOutputDir       = "."
	defaultRenderBinary    = "manim"
	defaultRenderThreads   = 6
	defaultQuality         = "medium"
	defaultSceneMarker     = "TTSScene"
	defaultSourceExt       = ".py"
	defaultVideoExt        = ".mp4"
	defaultFFmpegBinary    = "ffmpeg"
	defaultVideoCodec      = "libx264"
	defaultAudioCodec      = "aac"
	defaultVoice           = "am_adam"
	defaultTTSBinary       = "kokoro-tts"
	defaultAudioExt        = ".wav"
	defaultVoiceFactor     = 1.0
	defaultFFprobeBinary   = "ffprobe"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultWatchDebounceMS = 500
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir:  defaultMediaDir,
			VoiceDir:  defaultVoiceDir,
			OutputDir: defaultOutputDir,
		},
		Render: Render{
			Binary:         defaultRenderBinary,
			Threads:        defaultRenderThreads,
			Quality:        defaultQuality,
			SceneMarker:    defaultSceneMarker,
			SourceExt:      defaultSourceExt,
			VideoExt:       defaultVideoExt,
			DisableCaching: true,
		},
		Merge: Merge{
			FFmpegBinary: defaultFFmpegBinary,
			Codec:        defaultVideoCodec,
			AudioCodec:   defaultAudioCodec,
		},
		Voice: Voice{
			DefaultVoice:   defaultVoice,
			TTSBinary:      defaultTTSBinary,
			TTSArgs:        defaultTTSArgs(),
			ListVoicesArgs: []string{"--list-voices"},
			AudioExt:       defaultAudioExt,
			Factor:         defaultVoiceFactor,
			Index:          true,
		},
		FFprobe: FFprobe{
			Binary: defaultFFprobeBinary,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Watch: Watch{
			DebounceMS: defaultWatchDebounceMS,
		},
	}
}

func defaultTTSArgs() []string {
	return []string{"--voice", "{voice}", "--output", "{output}"}
}
