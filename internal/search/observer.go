package search

import (
	"github.com/five82/gifsizer/internal/space"
	"github.com/five82/gifsizer/internal/trial"
)

// Observer receives session events. TrialFinished may be called from
// worker goroutines, but never concurrently with itself.
type Observer interface {
	SessionStarted(id string, src trial.Source, target *int64, sp *space.Space)
	StateChanged(from, to State)
	RoundStarted(round int, candidates []space.ParameterSet)
	TrialFinished(rec trial.Record)
	SessionFinished(res *SessionResult)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) SessionStarted(string, trial.Source, *int64, *space.Space) {}
func (NopObserver) StateChanged(State, State) {}
func (NopObserver) RoundStarted(int, []space.ParameterSet) {}
func (NopObserver) TrialFinished(trial.Record) {}
func (NopObserver) SessionFinished(*SessionResult) {}
