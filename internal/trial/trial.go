// Package trial runs a single encode of a source at one parameter set and
// records its outcome.
package trial

import (
	"context"
	"errors"
	"time"

	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/space"
)

// Source is an opaque handle to the media being encoded.
type Source interface {
	Name() string
}

// Result is what an Encoder reports for one encode.
type Result struct {
	// SizeBytes is the encoded output size.
	SizeBytes int64
	// Artifact locates the encoded output, typically a file path. It may be
	// empty for encoders that only measure size.
	Artifact string
}

// Encoder produces an encoded artifact for a source at given parameters.
// Implementations must be safe for concurrent use unless the session runs
// with serialized execution.
type Encoder interface {
	Encode(ctx context.Context, src Source, ps space.ParameterSet) (Result, error)
}

// Discarder is implemented by encoders whose artifacts must be released once
// a trial is known not to be the winner.
type Discarder interface {
	Discard(artifact string) error
}

// Outcome is the measured result of a successful trial.
type Outcome struct {
	SizeBytes int64
	// Score ranks the parameter set by expected perceptual quality.
	Score    int
	Elapsed  time.Duration
	Artifact string
}

// Record is one trial in a session's history. Err is non-nil when the encode
// failed, in which case Outcome holds only Score and Elapsed.
type Record struct {
	Seq     int
	Params  space.ParameterSet
	Outcome Outcome
	Err     error
}

// OK reports whether the trial produced an output.
func (r Record) OK() bool {
	return r.Err == nil
}

// Cancelled reports whether the trial was interrupted by context cancellation.
func (r Record) Cancelled() bool {
	return gerrors.IsCancelled(r.Err)
}

// Run executes one encode, timing it and deriving the score from sp. Encoder
// errors are wrapped as encoder failures. Failures are never retried.
func Run(ctx context.Context, enc Encoder, src Source, sp *space.Space, ps space.ParameterSet, seq int) Record {
	rec := Record{
		Seq:    seq,
		Params: ps,
		Outcome: Outcome{
			Score: sp.Score(ps),
		},
	}

	if err := ctx.Err(); err != nil {
		rec.Err = cancelled(err)
		return rec
	}

	start := time.Now()
	res, err := enc.Encode(ctx, src, ps)
	rec.Outcome.Elapsed = time.Since(start)

	switch {
	case ctx.Err() != nil:
		rec.Err = cancelled(ctx.Err())
		discard(enc, res.Artifact)
	case err != nil:
		rec.Err = gerrors.NewEncoderError(ps.String(), err)
	case res.SizeBytes <= 0:
		rec.Err = gerrors.NewEncoderError(ps.String(), errors.New("encoder reported empty output"))
		discard(enc, res.Artifact)
	default:
		rec.Outcome.SizeBytes = res.SizeBytes
		rec.Outcome.Artifact = res.Artifact
	}
	return rec
}

// Discard releases the artifact of rec if the encoder supports it.
func Discard(enc Encoder, rec Record) error {
	d, ok := enc.(Discarder)
	if !ok || rec.Outcome.Artifact == "" {
		return nil
	}
	return d.Discard(rec.Outcome.Artifact)
}

func discard(enc Encoder, artifact string) {
	if d, ok := enc.(Discarder); ok && artifact != "" {
		_ = d.Discard(artifact)
	}
}

func cancelled(cause error) error {
	err := gerrors.NewCancelledError()
	err.Underlying = cause
	return err
}
