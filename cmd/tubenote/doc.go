// Package main hosts the tubenote CLI entrypoint and command graph.
//
// The Cobra command tree resolves configuration once, builds the transcript,
// transform, and publishing clients from it, and hands batches to the
// pipeline runner. Per-video failures are reported in the summary table and
// never change the exit status; only configuration and startup errors do.
package main
