// Package gifenc encodes trial GIFs with gifski and gifsicle from frames
// extracted by FFmpeg.
package gifenc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/ffmpeg"
	"github.com/five82/gifsizer/internal/ffprobe"
	"github.com/five82/gifsizer/internal/logging"
	"github.com/five82/gifsizer/internal/space"
	"github.com/five82/gifsizer/internal/trial"
	"github.com/five82/gifsizer/internal/util"
)

// TempPrefix names the working directories created by Prepare.
const TempPrefix = "gifsizer"

// Config holds the tool paths and output options.
type Config struct {
	FFmpegPath   string
	FFprobePath  string
	GifskiPath   string
	GifsiclePath string
	MagickPath   string

	// TempDir is where per-source working directories are created.
	TempDir string

	ScalePercent  int
	LoopCount     int
	PreserveAlpha bool

	FallbackFPS float64
	MaxFPS      float64
}

// Encoder implements trial.Encoder and trial.Discarder. It is safe for
// concurrent use; every trial writes its own artifact.
type Encoder struct {
	cfg Config
	seq atomic.Int64
}

// New creates an Encoder.
func New(cfg Config) *Encoder {
	if cfg.ScalePercent <= 0 {
		cfg.ScalePercent = 100
	}
	return &Encoder{cfg: cfg}
}

// Source is a prepared input: probed and split into PNG frames.
type Source struct {
	Path   string
	Frames []string
	info   *ffprobe.SourceInfo
	dir    *util.TempDir
}

// Name implements trial.Source.
func (s *Source) Name() string { return s.Path }

// Info returns the probed source properties.
func (s *Source) Info() *ffprobe.SourceInfo { return s.info }

// Dir returns the working directory holding frames and trial artifacts.
func (s *Source) Dir() string { return s.dir.Path() }

// Close removes the working directory and everything left in it.
func (s *Source) Close() error {
	if s.dir == nil {
		return nil
	}
	return s.dir.Cleanup()
}

// Prepare probes inputPath and extracts its frames into a fresh working
// directory. The caller must Close the returned Source.
func (e *Encoder) Prepare(ctx context.Context, inputPath string, progress ffmpeg.ProgressCallback) (*Source, error) {
	info, err := ffprobe.Probe(ctx, e.cfg.FFprobePath, inputPath, e.cfg.FallbackFPS, e.cfg.MaxFPS)
	if err != nil {
		return nil, err
	}
	if info.FrameRateGuessed {
		logging.Warn("Could not detect source frame rate", "file", inputPath, "fallback", info.FrameRate)
	}

	dir, err := util.CreateTempDir(e.cfg.TempDir, TempPrefix)
	if err != nil {
		return nil, gerrors.NewIOError("failed to create working directory", err)
	}

	src := &Source{Path: inputPath, info: info, dir: dir}
	if err := e.extract(ctx, src, progress); err != nil {
		_ = src.Close()
		return nil, err
	}

	logging.Info("Source prepared", "file", inputPath, "frames", len(src.Frames),
		"fps", info.FrameRate, "resolution", info.Resolution())
	return src, nil
}

func (e *Encoder) extract(ctx context.Context, src *Source, progress ffmpeg.ProgressCallback) error {
	framesDir := filepath.Join(src.dir.Path(), "frames")
	if err := os.Mkdir(framesDir, 0o755); err != nil {
		return gerrors.NewIOError("failed to create frames directory", err)
	}

	params := &ffmpeg.ExtractParams{
		FFmpegPath: e.cfg.FFmpegPath,
		InputPath:  src.Path,
		OutputDir:  framesDir,
		FPS:        src.info.FrameRate,
	}
	if err := ffmpeg.RunExtract(ctx, params, src.info.Frames, progress); err != nil {
		return err
	}

	frames, err := filepath.Glob(filepath.Join(framesDir, ffmpeg.FrameGlob))
	if err != nil {
		return gerrors.NewIOError("failed to list frames", err)
	}
	if len(frames) == 0 {
		return gerrors.NewProbeError(fmt.Sprintf("no frames extracted from %s", src.Path), nil)
	}
	sort.Strings(frames)
	src.Frames = frames
	return nil
}

// Encode implements trial.Encoder.
func (e *Encoder) Encode(ctx context.Context, s trial.Source, ps space.ParameterSet) (trial.Result, error) {
	src, ok := s.(*Source)
	if !ok {
		return trial.Result{}, fmt.Errorf("gifenc: unsupported source %T", s)
	}

	frames := SelectFrames(src.Frames, ps.FrameSkip)
	n := e.seq.Add(1)
	base := filepath.Join(src.dir.Path(), fmt.Sprintf("trial_%04d_q%d_l%d_s%d", n, ps.Quality, ps.Diffusion, ps.FrameSkip))
	raw := base + ".raw.gif"
	artifact := base + ".gif"
	defer func() { _ = os.Remove(raw) }()

	gifski := GifskiArgs{
		Output:  raw,
		Quality: ps.Quality,
		FPS:     src.info.FrameRate * ps.FrameRateFactor(),
		Width:   ScaleDimension(src.info.Width, e.cfg.ScalePercent),
		Height:  ScaleDimension(src.info.Height, e.cfg.ScalePercent),
		Frames:  frames,
	}
	if err := runTool(ctx, e.cfg.GifskiPath, "gifski", gifski.Build()); err != nil {
		return trial.Result{}, err
	}

	gifsicle := GifsicleArgs{
		Input:         raw,
		Output:        artifact,
		Lossy:         ps.Diffusion,
		LoopCount:     e.cfg.LoopCount,
		PreserveAlpha: e.cfg.PreserveAlpha,
	}
	if err := runTool(ctx, e.cfg.GifsiclePath, "gifsicle", gifsicle.Build()); err != nil {
		_ = os.Remove(artifact)
		return trial.Result{}, err
	}

	size, err := util.GetFileSize(artifact)
	if err != nil {
		return trial.Result{}, gerrors.NewIOError("optimized GIF missing", err)
	}
	return trial.Result{SizeBytes: size, Artifact: artifact}, nil
}

// Polish runs ImageMagick layer optimization over artifact and returns the
// new file beside it. The original artifact is left in place; the caller
// decides which one to keep.
func (e *Encoder) Polish(ctx context.Context, artifact string) (trial.Result, error) {
	if e.cfg.MagickPath == "" {
		return trial.Result{}, gerrors.NewConfigError("magick path not configured")
	}

	out := strings.TrimSuffix(artifact, ".gif") + ".magick.gif"
	args := MagickArgs{Input: artifact, Output: out}
	if err := runTool(ctx, e.cfg.MagickPath, "magick", args.Build()); err != nil {
		_ = os.Remove(out)
		return trial.Result{}, err
	}

	size, err := util.GetFileSize(out)
	if err != nil {
		return trial.Result{}, gerrors.NewIOError("magick produced no output", err)
	}
	return trial.Result{SizeBytes: size, Artifact: out}, nil
}

// Discard implements trial.Discarder.
func (e *Encoder) Discard(artifact string) error {
	if artifact == "" {
		return nil
	}
	if err := os.Remove(artifact); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func runTool(ctx context.Context, path, name string, args []string) error {
	cmd := exec.CommandContext(ctx, path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, exec.ErrNotFound) {
			return gerrors.NewCommandStartError(name, err)
		}
		return gerrors.WrapExecError(name, err, stderr.String())
	}
	return nil
}
