package search

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/executor"
	"github.com/five82/gifsizer/internal/logging"
	"github.com/five82/gifsizer/internal/space"
	"github.com/five82/gifsizer/internal/trial"
	"github.com/five82/gifsizer/internal/util"
)

// ErrSessionUsed is returned when a Controller is run a second time.
var ErrSessionUsed = errors.New("controller has already run a session")

// Controller runs a single search session.
type Controller struct {
	enc  trial.Encoder
	cfg  Config
	sp   *space.Space
	exec *executor.Executor
	obs  Observer
	used atomic.Bool
}

// New validates cfg and builds a Controller for enc.
func New(enc trial.Encoder, cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sp, err := space.New(cfg.Space, cfg.Locks)
	if err != nil {
		return nil, gerrors.NewConfigError(err.Error())
	}

	obs := cfg.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	ex, err := executor.New(enc, sp, executor.Config{
		Workers:   cfg.Workers,
		Serialize: cfg.Serialize,
		OnTrial:   obs.TrialFinished,
	})
	if err != nil {
		return nil, err
	}

	return &Controller{enc: enc, cfg: cfg, sp: sp, exec: ex, obs: obs}, nil
}

// Space returns the parameter space the controller searches.
func (c *Controller) Space() *space.Space {
	return c.sp
}

// Run is a convenience that builds a Controller and runs one session.
func Run(ctx context.Context, enc trial.Encoder, src trial.Source, cfg Config, target *int64) (*SessionResult, error) {
	c, err := New(enc, cfg)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, src, target)
}

// session holds the mutable state of one Run.
type session struct {
	c      *Controller
	id     string
	src    trial.Source
	state  State
	prog   *Progress
	log    *logging.Logger
	start  time.Time
	rounds int
}

// Run searches for the highest-quality parameter set whose encode of src
// fits target bytes. A nil target accepts the baseline. Exhausted and
// Cancelled are terminal states reported in the result, not errors; the
// error is non-nil only for invalid input or a batch in which every trial
// failed.
func (c *Controller) Run(ctx context.Context, src trial.Source, target *int64) (*SessionResult, error) {
	if err := ValidateTarget(target); err != nil {
		return nil, err
	}
	if !c.used.CompareAndSwap(false, true) {
		return nil, ErrSessionUsed
	}

	s := &session{
		c:     c,
		id:    uuid.New().String(),
		src:   src,
		state: Idle,
		prog:  NewProgress(target),
		start: time.Now(),
	}
	s.log = logging.Global().With("session", s.id, "source", src.Name())
	c.obs.SessionStarted(s.id, src, target, c.sp)
	s.log.Info("Search session started", "target", targetString(target),
		"space_size", c.sp.Size(), "workers", c.exec.Limit())

	return s.run(ctx)
}

func (s *session) run(ctx context.Context) (*SessionResult, error) {
	sp := s.c.sp

	s.transition(BaselinePass)
	if res, err := s.dispatch(ctx, []space.ParameterSet{sp.Baseline()}); res != nil {
		return res, err
	}

	base := s.prog.History[0]
	target := s.prog.Target
	if target == nil || s.prog.Best != nil {
		s.log.Info("Baseline accepted", "size", base.Outcome.SizeBytes)
		return s.finish(Converged, nil), nil
	}

	if sp.Locks().AllLocked() {
		s.log.Info("Baseline over target with every axis locked", "size", base.Outcome.SizeBytes)
		return s.finish(Exhausted, nil), nil
	}

	s.transition(TargetSearch)
	for s.rounds < s.c.cfg.MaxRounds {
		if ctx.Err() != nil {
			return s.finish(Cancelled, ctx.Err()), nil
		}

		cands := s.prog.Candidates(sp, s.c.cfg.BatchSize)
		if len(cands) == 0 {
			s.log.Info("Search space exhausted", "rounds", s.rounds)
			return s.finish(s.settled(), nil), nil
		}

		s.rounds++
		s.c.obs.RoundStarted(s.rounds, cands)
		s.log.Debug("Round started", "round", s.rounds, "candidates", len(cands))

		if res, err := s.dispatch(ctx, cands); res != nil {
			return res, err
		}
		s.prog.Round = s.rounds
	}

	s.log.Info("Round budget spent", "rounds", s.rounds)
	return s.finish(s.settled(), nil), nil
}

// dispatch runs one batch and folds its records. It returns a non-nil
// result when the session ended during the batch.
func (s *session) dispatch(ctx context.Context, sets []space.ParameterSet) (*SessionResult, error) {
	batch, err := s.c.exec.RunBatch(ctx, s.src, sets, s.prog.NextSeq())
	if err != nil && ctx.Err() != nil {
		return s.finish(Cancelled, ctx.Err()), nil
	}

	exact := false
	if batch != nil {
		for _, rec := range batch.Records {
			if s.prog.Fold(rec) {
				exact = true
			}
		}
	}

	if err != nil {
		s.log.Error("Every trial in batch failed", "error", err)
		return s.finish(Exhausted, err), err
	}
	if exact {
		s.log.Info("Exact target hit", "params", s.prog.Best.Params.String())
		return s.finish(Converged, nil), nil
	}
	return nil, nil
}

// settled picks the terminal state once the search stops on its own.
func (s *session) settled() State {
	if s.prog.Best != nil {
		return Converged
	}
	return Exhausted
}

func (s *session) transition(to State) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	s.c.obs.StateChanged(from, to)
}

func (s *session) finish(state State, cause error) *SessionResult {
	s.transition(state)

	res := &SessionResult{
		ID:       s.id,
		State:    state,
		History:  s.prog.History,
		Smallest: s.prog.Smallest,
		Target:   s.prog.Target,
		Trials:   len(s.prog.History),
		Rounds:   s.rounds,
		Elapsed:  time.Since(s.start),
		Cause:    cause,
	}
	if s.prog.Best != nil && (state != Cancelled || s.c.cfg.KeepPartial) {
		res.Winner = s.prog.Best
	}

	s.release(res)

	args := []any{"state", state.String(), "trials", res.Trials, "rounds", res.Rounds, "elapsed", res.Elapsed}
	if res.Winner != nil {
		args = append(args, "winner", res.Winner.Params.String(), "size", res.Winner.Outcome.SizeBytes)
	}
	s.log.Info("Search session finished", args...)

	s.c.obs.SessionFinished(res)
	return res
}

// release discards artifacts the caller will not receive.
func (s *session) release(res *SessionResult) {
	keep := res.kept()
	for _, rec := range res.History {
		if !rec.OK() || keep[rec.Outcome.Artifact] {
			continue
		}
		if err := trial.Discard(s.c.enc, rec); err != nil {
			s.log.Warn("Failed to discard trial artifact", "seq", rec.Seq, "error", err)
		}
	}
}

func targetString(target *int64) string {
	if target == nil {
		return "none"
	}
	return util.FormatBytes(*target)
}
