// Package transform rewrites transcript text through a text-generation
// backend chosen by model identifier.
//
// Long text is cut into fixed-size rune chunks that are transformed
// independently and rejoined with newlines. Rate-limited chunks are retried
// with exponential backoff and jitter; a chunk that still fails, or any
// chunk of a model with no known family, is kept verbatim, so Transform
// always returns usable text.
package transform
