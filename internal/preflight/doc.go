// Package preflight provides readiness checks for the external services and
// directories tubenote depends on. The "tubenote status" command renders
// RunAll's results; the individual checks are exported for reuse.
package preflight
