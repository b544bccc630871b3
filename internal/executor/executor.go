// Package executor runs batches of trial encodes with bounded parallelism.
package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/logging"
	"github.com/five82/gifsizer/internal/space"
	"github.com/five82/gifsizer/internal/trial"
)

// Config controls batch execution.
type Config struct {
	// Workers caps concurrent encodes. Zero selects DefaultWorkers().
	Workers int
	// Serialize forces one encode at a time for non-reentrant encoders.
	Serialize bool
	// OnTrial, if set, is called once per finished trial. Calls are
	// serialized but arrive in completion order.
	OnTrial func(trial.Record)
}

// Batch is the result of one dispatched batch.
type Batch struct {
	// Records are in the same order as the parameter sets submitted.
	Records   []trial.Record
	Succeeded int
	Failed    int
	Elapsed   time.Duration
}

// Executor dispatches trials to an encoder.
type Executor struct {
	enc     trial.Encoder
	sp      *space.Space
	limit   int
	onTrial func(trial.Record)
	mu      sync.Mutex
}

// New creates an Executor. Negative worker counts are rejected.
func New(enc trial.Encoder, sp *space.Space, cfg Config) (*Executor, error) {
	if enc == nil {
		return nil, gerrors.NewConfigError("encoder is required")
	}
	if cfg.Workers < 0 {
		return nil, gerrors.NewConfigError(fmt.Sprintf("workers must be >= 0, got %d", cfg.Workers))
	}

	limit := cfg.Workers
	if limit == 0 {
		limit = DefaultWorkers()
	}
	if cfg.Serialize {
		limit = 1
	}

	return &Executor{
		enc:     enc,
		sp:      sp,
		limit:   limit,
		onTrial: cfg.OnTrial,
	}, nil
}

// Limit returns the effective concurrency.
func (e *Executor) Limit() int {
	return e.limit
}

// RunBatch encodes every parameter set, assigning sequence numbers from
// firstSeq in input order. A failed trial only fails itself. If every
// trial fails the batch is returned along with an all-trials-failed error
// carrying the first cause. If ctx is cancelled the batch is discarded and
// the context error returned.
func (e *Executor) RunBatch(ctx context.Context, src trial.Source, sets []space.ParameterSet, firstSeq int) (*Batch, error) {
	start := time.Now()
	records := make([]trial.Record, len(sets))

	var g errgroup.Group
	g.SetLimit(e.limit)

	scheduled := 0
	for i, ps := range sets {
		if ctx.Err() != nil {
			break
		}
		scheduled++
		g.Go(func() error {
			rec := trial.Run(ctx, e.enc, src, e.sp, ps, firstSeq+i)
			records[i] = rec
			logging.Debug("Trial finished", "seq", rec.Seq, "params", ps.String(),
				"size", rec.Outcome.SizeBytes, "elapsed", rec.Outcome.Elapsed, "error", rec.Err)
			if e.onTrial != nil {
				e.mu.Lock()
				e.onTrial(rec)
				e.mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		for _, rec := range records[:scheduled] {
			if !rec.OK() {
				continue
			}
			if err := trial.Discard(e.enc, rec); err != nil {
				logging.Warn("Failed to discard trial artifact", "seq", rec.Seq, "error", err)
			}
		}
		return nil, err
	}

	batch := &Batch{Records: records, Elapsed: time.Since(start)}
	var firstErr error
	for _, rec := range records {
		if rec.OK() {
			batch.Succeeded++
			continue
		}
		batch.Failed++
		if firstErr == nil {
			firstErr = rec.Err
		}
	}

	if len(records) > 0 && batch.Succeeded == 0 {
		return batch, gerrors.NewAllTrialsFailedError(len(records), firstErr)
	}
	return batch, nil
}
