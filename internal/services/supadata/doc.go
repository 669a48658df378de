// Package supadata fetches video transcripts from the Supadata API.
//
// A transcript request either completes inline (HTTP 200) or returns a job
// id (HTTP 202) that is polled at a fixed interval until the job reports
// completed or failed. Segment-array responses are flattened to a single
// space-joined string.
package supadata
