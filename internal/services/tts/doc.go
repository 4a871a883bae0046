// Package tts wraps a command-line speech synthesizer. Arguments come from a
// configurable template and the text to speak is written to stdin.
package tts
