package search

import (
	"slices"

	"github.com/five82/gifsizer/internal/selector"
	"github.com/five82/gifsizer/internal/space"
	"github.com/five82/gifsizer/internal/trial"
)

// State is the phase of a search session.
type State int

const (
	// Idle means no trial has run yet.
	Idle State = iota
	// BaselinePass runs the maximum-quality encode.
	BaselinePass
	// TargetSearch explores the space toward the target size.
	TargetSearch
	// Converged means a winner was chosen.
	Converged
	// Exhausted means no fitting parameter set could be found.
	Exhausted
	// Cancelled means the caller stopped the session.
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case BaselinePass:
		return "baseline"
	case TargetSearch:
		return "searching"
	case Converged:
		return "converged"
	case Exhausted:
		return "exhausted"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Converged || s == Exhausted || s == Cancelled
}

// Progress tracks what a session has learned. It is owned by a single
// controller and never shared between sessions.
type Progress struct {
	// Target is the size limit in bytes, nil when unconstrained.
	Target *int64

	// Best is the preferred fitting record so far.
	Best *trial.Record

	// Explored maps every dispatched parameter set to its trial sequence.
	Explored map[space.ParameterSet]int

	// TooBig holds successful records over the target. Together with Best
	// they bracket the target.
	TooBig []trial.Record

	// Failed holds records whose encode failed.
	Failed []trial.Record

	// Smallest is the successful record with the lowest size.
	Smallest *trial.Record

	// History holds every record in sequence order.
	History []trial.Record

	// Round is the number of completed target search rounds.
	Round int
}

// NewProgress creates empty session progress for target.
func NewProgress(target *int64) *Progress {
	return &Progress{
		Target:   target,
		Explored: make(map[space.ParameterSet]int),
		History:  make([]trial.Record, 0, 16),
	}
}

// NextSeq returns the sequence number for the next trial.
func (p *Progress) NextSeq() int {
	return len(p.History)
}

// Fold records a finished trial and reports whether it hit the target
// exactly.
func (p *Progress) Fold(rec trial.Record) bool {
	p.History = append(p.History, rec)
	p.Explored[rec.Params] = rec.Seq

	if !rec.OK() {
		p.Failed = append(p.Failed, rec)
		return false
	}

	if p.Smallest == nil || rec.Outcome.SizeBytes < p.Smallest.Outcome.SizeBytes {
		r := rec
		p.Smallest = &r
	}

	if !selector.Fits(rec, p.Target) {
		p.TooBig = append(p.TooBig, rec)
		return false
	}

	if p.Best == nil || selector.Better(rec, *p.Best, p.Target) {
		r := rec
		p.Best = &r
	}
	return p.Target != nil && rec.Outcome.SizeBytes == *p.Target
}

// Candidates returns up to limit unexplored parameter sets for the next
// round. Refinements of the best record toward higher quality come first,
// then descents from oversize records, smallest first, then descents from
// failed records. A candidate is dropped if it is at least as large as a
// known oversize point or, once a fitting record exists, cannot beat it.
func (p *Progress) Candidates(sp *space.Space, limit int) []space.ParameterSet {
	var out []space.ParameterSet
	seen := make(map[space.ParameterSet]bool)

	add := func(ps space.ParameterSet) {
		if len(out) >= limit || seen[ps] {
			return
		}
		if _, ok := p.Explored[ps]; ok {
			return
		}
		if p.dominatesTooBig(ps) {
			return
		}
		if p.Best != nil && sp.Score(ps) <= p.Best.Outcome.Score {
			return
		}
		seen[ps] = true
		out = append(out, ps)
	}

	if p.Best != nil {
		for _, n := range sp.Neighbors(p.Best.Params, space.TowardLarger) {
			add(n)
		}
		// Frame rate given up early in descent is only reachable this way.
		for _, n := range sp.Raises(p.Best.Params) {
			add(n)
		}
	}

	tooBig := slices.Clone(p.TooBig)
	slices.SortStableFunc(tooBig, func(a, b trial.Record) int {
		if a.Outcome.SizeBytes != b.Outcome.SizeBytes {
			if a.Outcome.SizeBytes < b.Outcome.SizeBytes {
				return -1
			}
			return 1
		}
		return a.Seq - b.Seq
	})
	for _, rec := range tooBig {
		for _, n := range sp.Neighbors(rec.Params, space.TowardSmaller) {
			add(n)
		}
	}

	for _, rec := range p.Failed {
		for _, n := range sp.Neighbors(rec.Params, space.TowardSmaller) {
			add(n)
		}
	}

	return out
}

func (p *Progress) dominatesTooBig(ps space.ParameterSet) bool {
	for _, rec := range p.TooBig {
		if space.Dominates(ps, rec.Params) {
			return true
		}
	}
	return false
}
