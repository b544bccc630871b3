// Package trialtest provides an in-memory encoder for exercising the search
// without external tools.
package trialtest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/five82/gifsizer/internal/space"
	"github.com/five82/gifsizer/internal/trial"
)

// Source is a named in-memory source.
type Source string

// Name implements trial.Source.
func (s Source) Name() string { return string(s) }

// SizeModel estimates the output size of a parameter set from a baseline
// size: lower quality, more diffusion and frame skipping all shrink it.
// Integer arithmetic keeps the model exact at round parameter values.
func SizeModel(baseline int64) func(space.ParameterSet) int64 {
	return func(ps space.ParameterSet) int64 {
		size := baseline * int64(400+6*ps.Quality) / 1000
		size = size * int64(400-ps.Diffusion) / 400
		size /= int64(max(ps.FrameSkip, 1))
		return max(size, 1)
	}
}

// Encoder is a deterministic fake trial.Encoder. Its zero value is not
// usable; set Size.
type Encoder struct {
	// Size returns the encoded size for a parameter set.
	Size func(space.ParameterSet) int64
	// Fail, when set, returns an error for parameter sets that should fail.
	Fail func(space.ParameterSet) error
	// Delay is slept (honoring ctx) inside every encode.
	Delay time.Duration
	// Block, when non-nil, is waited on (honoring ctx) inside every encode
	// selected by BlockIf, or every encode if BlockIf is nil.
	Block   <-chan struct{}
	BlockIf func(space.ParameterSet) bool
	// DiscardErr is returned by every Discard call.
	DiscardErr error

	calls     atomic.Int64
	inFlight  atomic.Int64
	peak      atomic.Int64
	mu        sync.Mutex
	seen      []space.ParameterSet
	discarded []string
}

// Encode implements trial.Encoder.
func (e *Encoder) Encode(ctx context.Context, _ trial.Source, ps space.ParameterSet) (trial.Result, error) {
	e.calls.Add(1)
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		p := e.peak.Load()
		if n <= p || e.peak.CompareAndSwap(p, n) {
			break
		}
	}

	e.mu.Lock()
	e.seen = append(e.seen, ps)
	e.mu.Unlock()

	if e.Block != nil && (e.BlockIf == nil || e.BlockIf(ps)) {
		select {
		case <-e.Block:
		case <-ctx.Done():
			return trial.Result{}, ctx.Err()
		}
	}
	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return trial.Result{}, ctx.Err()
		}
	}

	if e.Fail != nil {
		if err := e.Fail(ps); err != nil {
			return trial.Result{}, err
		}
	}
	return trial.Result{
		SizeBytes: e.Size(ps),
		Artifact:  fmt.Sprintf("mem://%s", ps),
	}, nil
}

// Discard implements trial.Discarder.
func (e *Encoder) Discard(artifact string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discarded = append(e.discarded, artifact)
	return e.DiscardErr
}

// Calls returns the number of Encode invocations.
func (e *Encoder) Calls() int { return int(e.calls.Load()) }

// Peak returns the highest number of concurrent Encode calls observed.
func (e *Encoder) Peak() int { return int(e.peak.Load()) }

// Seen returns the parameter sets encoded, in call order.
func (e *Encoder) Seen() []space.ParameterSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]space.ParameterSet(nil), e.seen...)
}

// Discarded returns the artifacts released through Discard.
func (e *Encoder) Discarded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.discarded...)
}
