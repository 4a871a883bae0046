// Package scenes discovers narrated scenes in a content unit without
// executing it.
//
// A small Python tokenizer walks the source, skipping comments and string
// literals, and reports every class whose base list names the configured
// marker (TTSScene by default). Each scene's authoring order is the line of
// its class keyword; the render and merge stages both key off the resulting
// Ordering.
package scenes
