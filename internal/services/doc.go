// Package services defines shared utilities consumed by the build pipeline and
// its external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and scene names for
//     logging.
//   - Structured error markers plus the Wrap helper, so every failure carries a
//     class (discovery, render, empty artifact set, merge, narration) that the
//     CLI turns into a distinct exit code.
//
// Subpackages wrap the external collaborators (renderer, speech synthesis,
// encoder) behind small testable clients.
package services
