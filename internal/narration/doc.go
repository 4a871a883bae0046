// Package narration aligns synthesized voice clips with scene animation.
//
// A Synchronizer fetches (or synthesizes) the clip for a cue, registers it on
// a Timeline at the cue offset, plays the accompanying actions and then holds
// the timeline for the remainder of the clip scaled by the cue factor. Sheet
// is a Timeline that records the resulting cue sheet instead of rendering.
package narration
