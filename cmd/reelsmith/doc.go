// Package main hosts the reelsmith CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once per invocation, builds
// the slog logger, and hands work to the internal packages: build for the
// render and merge pipeline, voicecache and narration for the voice
// commands, deps and preflight for readiness reports. Results go to stdout;
// logs and failure tables go to stderr. The process exit status is derived
// from the error marker so scripts can tell failure classes apart.
package main
