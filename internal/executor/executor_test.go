package executor

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/logging"
	"github.com/five82/gifsizer/internal/space"
	"github.com/five82/gifsizer/internal/trial"
	"github.com/five82/gifsizer/internal/trial/trialtest"
)

func testSpace(t *testing.T) *space.Space {
	t.Helper()
	sp, err := space.New(space.DefaultConfig(), space.Locks{})
	require.NoError(t, err)
	return sp
}

func descent(sp *space.Space, n int) []space.ParameterSet {
	var out []space.ParameterSet
	cur := sp.Baseline()
	for len(out) < n {
		out = append(out, cur)
		next := sp.Neighbors(cur, space.TowardSmaller)
		if len(next) == 0 {
			break
		}
		cur = next[len(next)-1]
	}
	return out
}

func TestNewRejectsNegativeWorkers(t *testing.T) {
	sp := testSpace(t)
	enc := &trialtest.Encoder{Size: trialtest.SizeModel(1000)}

	_, err := New(enc, sp, Config{Workers: -1})
	require.Error(t, err)
	assert.True(t, gerrors.IsKind(err, gerrors.KindConfig))

	_, err = New(nil, sp, Config{})
	assert.Error(t, err)
}

func TestNewLimit(t *testing.T) {
	sp := testSpace(t)
	enc := &trialtest.Encoder{Size: trialtest.SizeModel(1000)}

	ex, err := New(enc, sp, Config{Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, ex.Limit())

	ex, err = New(enc, sp, Config{Workers: 3, Serialize: true})
	require.NoError(t, err)
	assert.Equal(t, 1, ex.Limit())

	ex, err = New(enc, sp, Config{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ex.Limit(), 1)
}

func TestRunBatchPreservesInputOrder(t *testing.T) {
	sp := testSpace(t)
	sets := descent(sp, 6)
	enc := &trialtest.Encoder{Size: trialtest.SizeModel(100_000), Delay: 5 * time.Millisecond}

	ex, err := New(enc, sp, Config{Workers: 4})
	require.NoError(t, err)

	batch, err := ex.RunBatch(context.Background(), trialtest.Source("clip"), sets, 10)
	require.NoError(t, err)
	require.Len(t, batch.Records, len(sets))

	for i, rec := range batch.Records {
		assert.Equal(t, 10+i, rec.Seq)
		assert.Equal(t, sets[i], rec.Params)
		assert.NoError(t, rec.Err)
		assert.Equal(t, sp.Score(sets[i]), rec.Outcome.Score)
	}
	assert.Equal(t, len(sets), batch.Succeeded)
	assert.Zero(t, batch.Failed)
}

func TestRunBatchBoundsConcurrency(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantPeak int
	}{
		{"two workers", Config{Workers: 2}, 2},
		{"serialized", Config{Workers: 8, Serialize: true}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := testSpace(t)
			enc := &trialtest.Encoder{Size: trialtest.SizeModel(1000), Delay: 10 * time.Millisecond}
			ex, err := New(enc, sp, tt.cfg)
			require.NoError(t, err)

			_, err = ex.RunBatch(context.Background(), trialtest.Source("clip"), descent(sp, 8), 0)
			require.NoError(t, err)
			assert.LessOrEqual(t, enc.Peak(), tt.wantPeak)
			assert.Equal(t, 8, enc.Calls())
		})
	}
}

func TestRunBatchPartialFailure(t *testing.T) {
	sp := testSpace(t)
	sets := descent(sp, 4)
	bad := sets[1]
	enc := &trialtest.Encoder{
		Size: trialtest.SizeModel(1000),
		Fail: func(ps space.ParameterSet) error {
			if ps == bad {
				return errors.New("palette overflow")
			}
			return nil
		},
	}

	ex, err := New(enc, sp, Config{Workers: 2})
	require.NoError(t, err)

	batch, err := ex.RunBatch(context.Background(), trialtest.Source("clip"), sets, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)
	assert.True(t, gerrors.IsEncoderFailure(batch.Records[1].Err))
	assert.Equal(t, 4, enc.Calls(), "other trials must still run")
}

func TestRunBatchAllFailed(t *testing.T) {
	sp := testSpace(t)
	enc := &trialtest.Encoder{
		Size: trialtest.SizeModel(1000),
		Fail: func(space.ParameterSet) error { return errors.New("gifski missing") },
	}

	ex, err := New(enc, sp, Config{Workers: 2})
	require.NoError(t, err)

	batch, err := ex.RunBatch(context.Background(), trialtest.Source("clip"), descent(sp, 3), 0)
	require.Error(t, err)
	assert.True(t, gerrors.IsAllTrialsFailed(err))
	require.NotNil(t, batch)
	assert.Equal(t, 3, batch.Failed)
}

func TestRunBatchCancelled(t *testing.T) {
	sp := testSpace(t)
	block := make(chan struct{})
	defer close(block)
	enc := &trialtest.Encoder{Size: trialtest.SizeModel(1000), Block: block}

	var observed []trial.Record
	ex, err := New(enc, sp, Config{Workers: 2, OnTrial: func(r trial.Record) { observed = append(observed, r) }})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	batch, err := ex.RunBatch(ctx, trialtest.Source("clip"), descent(sp, 6), 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, batch)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.LessOrEqual(t, enc.Calls(), 6)
	for _, rec := range observed {
		assert.False(t, rec.OK())
	}
}

func TestRunBatchCancelledLogsDiscardFailure(t *testing.T) {
	var logs bytes.Buffer
	logging.Init(logging.LevelInfo, &logs)
	t.Cleanup(func() { logging.SetGlobal(logging.New(logging.DefaultConfig())) })

	sp := testSpace(t)
	sets := descent(sp, 4)
	block := make(chan struct{})
	defer close(block)
	enc := &trialtest.Encoder{
		Size:       trialtest.SizeModel(1000),
		Block:      block,
		BlockIf:    func(ps space.ParameterSet) bool { return ps == sets[len(sets)-1] },
		DiscardErr: errors.New("device busy"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := 0
	ex, err := New(enc, sp, Config{Workers: len(sets), OnTrial: func(r trial.Record) {
		if r.OK() {
			done++
		}
		if done == len(sets)-1 {
			cancel()
		}
	}})
	require.NoError(t, err)

	_, err = ex.RunBatch(ctx, trialtest.Source("clip"), sets, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, enc.Discarded(), len(sets)-1)
	assert.Equal(t, len(sets)-1, bytes.Count(logs.Bytes(), []byte("Failed to discard trial artifact")))
	assert.Contains(t, logs.String(), "device busy")
}

func TestRunBatchOnTrial(t *testing.T) {
	sp := testSpace(t)
	enc := &trialtest.Encoder{Size: trialtest.SizeModel(1000)}

	seen := map[int]bool{}
	ex, err := New(enc, sp, Config{Workers: 3, OnTrial: func(r trial.Record) { seen[r.Seq] = true }})
	require.NoError(t, err)

	_, err = ex.RunBatch(context.Background(), trialtest.Source("clip"), descent(sp, 5), 1)
	require.NoError(t, err)
	assert.Equal(t, map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}, seen)
}

func TestRunBatchEmpty(t *testing.T) {
	sp := testSpace(t)
	ex, err := New(&trialtest.Encoder{Size: trialtest.SizeModel(1)}, sp, Config{Workers: 1})
	require.NoError(t, err)

	batch, err := ex.RunBatch(context.Background(), trialtest.Source("clip"), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, batch.Records)
}

func TestCalculateWorkers(t *testing.T) {
	assert.Equal(t, 1, CalculateWorkers(0, 0, 0, 0))
	assert.Equal(t, 1, CalculateWorkers(8, 1<<15, 1<<15, 1<<20), "huge frames should cap to one worker")
	assert.LessOrEqual(t, CalculateWorkers(4, 320, 240, 10), 4)
	assert.Equal(t, uint64(320*240*4*10)+encoderOverhead, WorkerMemoryBytes(320, 240, 10))
	assert.GreaterOrEqual(t, DefaultWorkers(), 1)
}
