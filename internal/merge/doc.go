// Package merge collects rendered scene clips and concatenates them into the
// final video.
//
// Collect lists the clips in a resolution directory, drops any whose scene is
// not declared in the current unit, and orders the rest by authoring order.
// Merger opens every clip, encodes the concatenation into a pending file, and
// atomically replaces the output only when the encode succeeds. Opened clips
// are closed on every path.
package merge
