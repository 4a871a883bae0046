// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Prober: measures narration audio length for the voice cache
//
// Audio length is derived as frames / sample rate, where the frame count comes
// from the stream's duration_ts.
package ffprobe
