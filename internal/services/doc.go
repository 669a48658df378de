// Package services defines shared utilities consumed by the pipeline stages and
// the external service clients.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, video IDs, work list positions, and
//     stage names for logging.
//   - Structured error markers plus the Wrap helper, and the mapping from a
//     marker to the per-item outcome (skipped vs failed).
//
// Client packages under this directory tag their errors with these markers so
// the orchestrator can classify failures without knowing which service raised
// them.
package services
