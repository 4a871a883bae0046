// Package voicecache stores synthesized narration audio keyed by the digest of
// voice and text.
//
// Artifacts live at <dir>/<key><ext> so existing voice directories remain
// valid. Writers hold a per-key file lock, produce into a temp file in the
// same directory and rename it into place, so readers never observe partial
// audio and each key is synthesized at most once even across processes. An
// optional sqlite index records durations and the source text; files without
// a row are probed and backfilled on first read. Nothing is ever evicted.
package voicecache
