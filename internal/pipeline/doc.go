// Package pipeline runs the batch: it normalizes inputs, expands playlists,
// and drives every video through fetch, transform, paginate, and publish.
//
// Per-item errors are classified with services.ItemDisposition into skipped
// or failed outcomes and never stop the batch. With Options.Workers above one
// items run concurrently, but outcomes are always reported in input order.
// A Recorder, when configured, makes reruns skip videos that were already
// published.
package pipeline
