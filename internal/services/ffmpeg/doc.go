// Package ffmpeg wraps the ffmpeg concat demuxer used to join rendered scene
// clips into a single video.
package ffmpeg
