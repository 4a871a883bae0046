// Package config loads, normalizes, and validates reelsmith configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from an explicit path, a project-local
// reelsmith.toml, or the user config directory. The Config type centralizes
// every knob the build pipeline and CLI need: media and voice cache
// directories, renderer and encoder binaries, the speech synthesis command,
// and logging.
//
// Quality tiers are an explicit enum; each level maps to exactly one preset of
// renderer flag, resolution directory and merge encode preset.
package config
