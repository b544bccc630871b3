package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/gifsizer/internal/search"
	"github.com/five82/gifsizer/internal/space"
	"github.com/five82/gifsizer/internal/trial"
	"github.com/five82/gifsizer/internal/trial/trialtest"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func runSession(t *testing.T, target int64) *search.SessionResult {
	t.Helper()
	enc := &trialtest.Encoder{Size: trialtest.SizeModel(1_000_000)}
	cfg := search.DefaultConfig()
	cfg.Workers = 2
	res, err := search.Run(context.Background(), enc, trialtest.Source("clip.mp4"), cfg, &target)
	require.NoError(t, err)
	return res
}

func TestRecordAndReadBack(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	res := runSession(t, 400_000)
	sess, trials := FromResult(res, "/in/clip.mp4", "/out/clip_optimized.gif")
	require.NoError(t, store.Record(ctx, sess, trials))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	got := recent[0]
	assert.Equal(t, res.ID, got.ID)
	assert.Equal(t, "converged", got.State)
	assert.Equal(t, "/out/clip_optimized.gif", got.OutputPath)
	require.NotNil(t, got.Target)
	assert.Equal(t, int64(400_000), *got.Target)
	assert.Equal(t, res.Winner.Params.String(), got.Winner)
	assert.Equal(t, res.Winner.Outcome.SizeBytes, got.WinnerBytes)
	assert.Equal(t, res.Trials, got.Trials)
	assert.Empty(t, got.Cause)

	stored, err := store.Trials(ctx, res.ID)
	require.NoError(t, err)

	want := make([]Trial, len(trials))
	for i, tr := range trials {
		tr.Elapsed = tr.Elapsed.Truncate(time.Millisecond)
		want[i] = tr
	}
	if diff := cmp.Diff(want, stored); diff != "" {
		t.Errorf("stored trials mismatch (-want +got):\n%s", diff)
	}
}

func TestRecentOrderAndLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		sess := Session{
			ID:        id,
			InputPath: id + ".mp4",
			State:     "exhausted",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, store.Record(ctx, sess, nil))
	}

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)
	assert.Nil(t, recent[0].Target)
}

func TestFromResultFailedTrials(t *testing.T) {
	target := int64(100)
	res := &search.SessionResult{
		ID:     "s1",
		State:  search.Exhausted,
		Target: &target,
		Trials: 1,
		Cause:  errors.New("every trial failed"),
		History: []trial.Record{{
			Seq:    0,
			Params: space.ParameterSet{Quality: 100, FrameSkip: 1},
			Err:    errors.New("gifski exited 1"),
		}},
	}

	sess, trials := FromResult(res, "in.gif", "")
	assert.Equal(t, "exhausted", sess.State)
	assert.Equal(t, "every trial failed", sess.Cause)
	assert.Empty(t, sess.Winner)
	require.Len(t, trials, 1)
	assert.Equal(t, "gifski exited 1", trials[0].Error)

	store := openStore(t)
	require.NoError(t, store.Record(context.Background(), sess, trials))
	stored, err := store.Trials(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "gifski exited 1", stored[0].Error)
}

func TestRecordDuplicateSessionFails(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sess := Session{ID: "dup", InputPath: "x", State: "converged", CreatedAt: time.Now()}

	require.NoError(t, store.Record(ctx, sess, nil))
	assert.Error(t, store.Record(ctx, sess, []Trial{{Seq: 0}}))

	// The failed transaction must not leave orphan trials.
	stored, err := store.Trials(ctx, "dup")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestOpenMigratesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	sess, trials := FromResult(runSession(t, 400_000), "/in/a.mp4", "/out/a.gif")
	require.NoError(t, store.Record(ctx, sess, trials))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	version, dirty, err := schemaVersion(reopened.db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	sessions, err := reopened.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sess.ID, sessions[0].ID)
}
