package pipeline

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is the terminal state of one work item.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

var titleCaser = cases.Title(language.English)

// Label returns the status for display ("Succeeded").
func (s Status) Label() string {
	return titleCaser.String(string(s))
}

// Outcome records what happened to one input or expanded playlist entry.
type Outcome struct {
	// Index is the 1-based position in the work list.
	Index      int
	Input      string
	VideoID    string
	URL        string
	Title      string
	Status     Status
	Stage      string
	Reason     string
	Err        error
	DocumentID string
	// Passthrough is set when some or all text was published untransformed.
	Passthrough bool
	// Note carries a non-fatal remark, such as a truncated playlist listing.
	Note     string
	Duration time.Duration
}

// Summary counts outcomes by status.
type Summary struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// Total returns the number of recorded outcomes.
func (s Summary) Total() int {
	return s.Succeeded + s.Skipped + s.Failed
}

// Run is the in-memory record of one batch invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
	Summary    Summary
}

// Duration returns the wall time of the run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

func (r *Run) tally() {
	r.Summary = Summary{}
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusSucceeded:
			r.Summary.Succeeded++
		case StatusSkipped:
			r.Summary.Skipped++
		default:
			r.Summary.Failed++
		}
	}
}
