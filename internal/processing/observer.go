package processing

import (
	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/logging"
	"github.com/five82/gifsizer/internal/reporter"
	"github.com/five82/gifsizer/internal/search"
	"github.com/five82/gifsizer/internal/selector"
	"github.com/five82/gifsizer/internal/space"
	"github.com/five82/gifsizer/internal/trial"
)

// searchObserver forwards session events to a Reporter.
type searchObserver struct {
	rep       reporter.Reporter
	target    *int64
	maxTrials int
}

func newSearchObserver(rep reporter.Reporter, target *int64, cfg search.Config) *searchObserver {
	return &searchObserver{
		rep:       rep,
		target:    target,
		maxTrials: 1 + cfg.MaxRounds*cfg.BatchSize,
	}
}

func (o *searchObserver) SessionStarted(id string, _ trial.Source, _ *int64, sp *space.Space) {
	maxTrials := o.maxTrials
	if o.target == nil {
		maxTrials = 1
	}
	o.rep.SearchStarted(reporter.SearchStartInfo{
		SessionID: id,
		SpaceSize: sp.Size(),
		MaxTrials: min(maxTrials, sp.Size()),
	})
}

func (o *searchObserver) StateChanged(from, to search.State) {
	logging.Debug("Search state changed", "from", from.String(), "to", to.String())
}

func (o *searchObserver) RoundStarted(round int, candidates []space.ParameterSet) {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.String()
	}
	o.rep.RoundStarted(reporter.RoundInfo{Round: round, Candidates: names})
}

func (o *searchObserver) TrialFinished(rec trial.Record) {
	summary := reporter.TrialSummary{
		Seq:     rec.Seq,
		Params:  rec.Params.String(),
		Size:    rec.Outcome.SizeBytes,
		Fits:    selector.Fits(rec, o.target),
		Elapsed: rec.Outcome.Elapsed,
	}
	if rec.Err != nil {
		summary.Error = rec.Err.Error()
		if gerrors.IsEncoderFailure(rec.Err) {
			logging.Warn("Trial encode failed", "seq", rec.Seq, "params", summary.Params, "error", rec.Err)
		}
	}
	o.rep.TrialComplete(summary)
}

func (o *searchObserver) SessionFinished(*search.SessionResult) {}
