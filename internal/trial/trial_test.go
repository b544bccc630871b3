package trial_test

import (
	"context"
	"errors"
	"testing"
	"time"

	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/space"
	"github.com/five82/gifsizer/internal/trial"
	"github.com/five82/gifsizer/internal/trial/trialtest"
)

func newSpace(t *testing.T) *space.Space {
	t.Helper()
	sp, err := space.New(space.DefaultConfig(), space.Locks{})
	if err != nil {
		t.Fatalf("space.New() error = %v", err)
	}
	return sp
}

func TestRunSuccess(t *testing.T) {
	sp := newSpace(t)
	enc := &trialtest.Encoder{Size: func(space.ParameterSet) int64 { return 4096 }}
	ps := space.ParameterSet{Quality: 90, Diffusion: 20, FrameSkip: 2}

	rec := trial.Run(context.Background(), enc, trialtest.Source("clip"), sp, ps, 7)

	if !rec.OK() {
		t.Fatalf("Run() error = %v", rec.Err)
	}
	if rec.Seq != 7 {
		t.Errorf("Seq = %d, want 7", rec.Seq)
	}
	if rec.Params != ps {
		t.Errorf("Params = %v, want %v", rec.Params, ps)
	}
	if rec.Outcome.SizeBytes != 4096 {
		t.Errorf("SizeBytes = %d, want 4096", rec.Outcome.SizeBytes)
	}
	if rec.Outcome.Score != sp.Score(ps) {
		t.Errorf("Score = %d, want %d", rec.Outcome.Score, sp.Score(ps))
	}
	if rec.Outcome.Artifact == "" {
		t.Error("Artifact should be set")
	}
}

func TestRunEncoderFailure(t *testing.T) {
	sp := newSpace(t)
	cause := errors.New("gifski crashed")
	enc := &trialtest.Encoder{
		Size: func(space.ParameterSet) int64 { return 1 },
		Fail: func(space.ParameterSet) error { return cause },
	}

	rec := trial.Run(context.Background(), enc, trialtest.Source("clip"), sp, sp.Baseline(), 0)

	if rec.OK() {
		t.Fatal("Run() should fail")
	}
	if !gerrors.IsEncoderFailure(rec.Err) {
		t.Errorf("Err = %v, want encoder failure", rec.Err)
	}
	if !errors.Is(rec.Err, cause) {
		t.Errorf("Err = %v, should wrap cause", rec.Err)
	}
	if enc.Calls() != 1 {
		t.Errorf("Calls() = %d, failures must not be retried", enc.Calls())
	}
}

func TestRunEmptyOutput(t *testing.T) {
	sp := newSpace(t)

	rec := trial.Run(context.Background(), zeroEncoder{},trialtest.Source("clip"), sp, sp.Baseline(), 0)
	if !gerrors.IsEncoderFailure(rec.Err) {
		t.Errorf("Err = %v, want encoder failure for empty output", rec.Err)
	}
}

type zeroEncoder struct{}

func (zeroEncoder) Encode(context.Context, trial.Source, space.ParameterSet) (trial.Result, error) {
	return trial.Result{}, nil
}

func TestRunCancelled(t *testing.T) {
	sp := newSpace(t)

	t.Run("before start", func(t *testing.T) {
		enc := &trialtest.Encoder{Size: func(space.ParameterSet) int64 { return 10 }}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		rec := trial.Run(ctx, enc, trialtest.Source("clip"), sp, sp.Baseline(), 0)
		if !rec.Cancelled() {
			t.Errorf("Err = %v, want cancelled", rec.Err)
		}
		if enc.Calls() != 0 {
			t.Errorf("Calls() = %d, encoder should not run", enc.Calls())
		}
	})

	t.Run("in flight", func(t *testing.T) {
		block := make(chan struct{})
		enc := &trialtest.Encoder{
			Size:  func(space.ParameterSet) int64 { return 10 },
			Block: block,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		rec := trial.Run(ctx, enc, trialtest.Source("clip"), sp, sp.Baseline(), 0)
		if !rec.Cancelled() {
			t.Errorf("Err = %v, want cancelled", rec.Err)
		}
		if gerrors.IsEncoderFailure(rec.Err) {
			t.Error("cancellation must not be reported as an encoder failure")
		}
	})
}

func TestDiscard(t *testing.T) {
	sp := newSpace(t)
	enc := &trialtest.Encoder{Size: func(space.ParameterSet) int64 { return 10 }}
	rec := trial.Run(context.Background(), enc, trialtest.Source("clip"), sp, sp.Baseline(), 0)

	if err := trial.Discard(enc, rec); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	got := enc.Discarded()
	if len(got) != 1 || got[0] != rec.Outcome.Artifact {
		t.Errorf("Discarded() = %v, want [%s]", got, rec.Outcome.Artifact)
	}

	if err := trial.Discard(zeroEncoder{}, rec); err != nil {
		t.Errorf("Discard() on encoder without Discarder = %v, want nil", err)
	}
}
