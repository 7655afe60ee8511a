package dag

import (
	"time"

	"github.com/kbukum/wmorder/unit"
)

// Status is the outcome of one unit in a run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// UnitResult holds the outcome of a single unit.
type UnitResult struct {
	Unit     unit.Unit     `json:"unit"`
	Status   Status        `json:"status"`
	Worker   int           `json:"worker,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// Result holds the outcome of a scheduler run. Units lists built units in
// the order their builds finished, followed by skipped units in lexical
// order. With a single worker that is also the release order.
type Result struct {
	Units    []UnitResult
	Duration time.Duration
}

// Count returns the number of units with the given status.
func (r *Result) Count(s Status) int {
	n := 0
	for _, u := range r.Units {
		if u.Status == s {
			n++
		}
	}
	return n
}

// Failed returns the failed units in release order.
func (r *Result) Failed() []UnitResult {
	var out []UnitResult
	for _, u := range r.Units {
		if u.Status == StatusFailed {
			out = append(out, u)
		}
	}
	return out
}

// Order returns the directories of every unit that was built, in the order
// the builds finished.
func (r *Result) Order() []string {
	var out []string
	for _, u := range r.Units {
		if u.Status != StatusSkipped {
			out = append(out, u.Unit.Dir)
		}
	}
	return out
}
