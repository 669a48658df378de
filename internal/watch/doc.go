// Package watch discovers new uploads on configured channels and records them
// in the checkpoint store as pending work for a later run.
package watch
