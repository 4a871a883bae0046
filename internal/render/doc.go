// Package render dispatches one render job per scene across a bounded worker
// pool.
//
// The Scheduler submits every job before waiting, lets every job run to
// completion even when a sibling fails, and records a typed JobResult per
// scene. The first failure is surfaced only after the whole pool has drained,
// so the merge stage never overlaps with rendering.
package render
