// Package manim wraps the manim command-line renderer.
//
// One CLI invocation renders one scene of a content unit at a quality flag
// (-ql, -qh, -qk) into the configured media directory. Output is streamed line
// by line so callers can log it, and the tail of the output is attached to
// errors when the renderer exits non-zero.
package manim
