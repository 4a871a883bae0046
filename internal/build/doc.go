// Package build runs the locate, render, collect and merge stages for one
// content unit.
//
// Every run gets a fresh run ID stamped on its log lines. A per-unit file
// lock keeps two builds of the same unit from interleaving, required external
// tools are checked before any rendering starts, and a render failure always
// stops the run before the merge.
package build
