package search

import (
	"time"

	"github.com/five82/gifsizer/internal/selector"
	"github.com/five82/gifsizer/internal/trial"
)

// SessionResult is the outcome of one session.
type SessionResult struct {
	// ID uniquely identifies the session.
	ID string

	// State is the terminal state.
	State State

	// Winner is the chosen record. It is nil when nothing fit the target,
	// and when a session is cancelled without KeepPartial.
	Winner *trial.Record

	// History holds every trial in sequence order.
	History []trial.Record

	// Smallest is the smallest successful record, useful as a best-effort
	// answer when the session is exhausted.
	Smallest *trial.Record

	Target  *int64
	Trials  int
	Rounds  int
	Elapsed time.Duration

	// Cause is set when the session ended because of an error.
	Cause error
}

// Fits reports whether the session produced a winner within the target.
func (r *SessionResult) Fits() bool {
	return r.Winner != nil && selector.Fits(*r.Winner, r.Target)
}

// Failures returns the number of failed trials.
func (r *SessionResult) Failures() int {
	n := 0
	for _, rec := range r.History {
		if !rec.OK() {
			n++
		}
	}
	return n
}

// kept returns the artifacts the caller owns after the session.
func (r *SessionResult) kept() map[string]bool {
	keep := make(map[string]bool, 2)
	if r.Winner != nil && r.Winner.Outcome.Artifact != "" {
		keep[r.Winner.Outcome.Artifact] = true
	}
	if r.Winner == nil && r.State == Exhausted && r.Smallest != nil && r.Smallest.Outcome.Artifact != "" {
		keep[r.Smallest.Outcome.Artifact] = true
	}
	return keep
}
