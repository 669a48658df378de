// Package checkpoint persists which videos have been discovered on watched
// channels and which already have a published document.
//
// The store is a single SQLite file (WAL mode, embedded schema with a
// version row). Writes retry briefly on SQLITE_BUSY. AcquireLock guards the
// store with an flock so two runs never interleave.
package checkpoint
