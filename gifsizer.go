// Package gifsizer converts videos and animations to GIFs that fit a size
// limit while keeping as much quality as possible.
//
// Each conversion runs a search over gifski quality, gifsicle lossy
// diffusion and frame skipping, starting from the highest quality and
// stepping down only as far as the limit requires.
//
// Basic usage:
//
//	opt, err := gifsizer.New(
//	    gifsizer.WithTarget(2 << 20),
//	    gifsizer.WithPreset(gifsizer.PresetBalanced),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := opt.Run(ctx, "clip.mp4", "out/", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("Wrote %s (%d bytes, %s)\n",
//	    result.OutputFile, result.OutputSize, result.Params)
package gifsizer

import (
	"context"
	"fmt"

	"github.com/five82/gifsizer/internal/config"
	"github.com/five82/gifsizer/internal/discovery"
	"github.com/five82/gifsizer/internal/history"
	"github.com/five82/gifsizer/internal/processing"
	"github.com/five82/gifsizer/internal/reporter"
	"github.com/five82/gifsizer/internal/search"
	"github.com/five82/gifsizer/internal/util"
)

// Re-export preset types
type Preset = config.Preset

const (
	PresetQuality  = config.PresetQuality
	PresetBalanced = config.PresetBalanced
	PresetSmall    = config.PresetSmall
)

// Reporter receives progress events from a conversion.
type Reporter = reporter.Reporter

// ParsePreset converts a preset string to a Preset value.
// Valid values are "quality", "balanced", and "small" (case-insensitive).
func ParsePreset(s string) (Preset, error) {
	return config.ParsePreset(s)
}

// Optimizer is the main entry point for size-targeted conversion.
type Optimizer struct {
	config  *config.Config
	target  *int64
	backend processing.Backend
}

// Result contains the result of a single conversion.
type Result struct {
	OutputFile string
	SessionID  string
	// State is the terminal search state: converged, exhausted or cancelled.
	State string
	// Params is the winning parameter set, e.g. "q=85 l=40 skip=1".
	Params               string
	Fits                 bool
	OriginalSize         int64
	OutputSize           int64
	SizeReductionPercent float64
	Trials               int
	Rounds               int
	// ValidationPassed is nil when the output was not validated.
	ValidationPassed *bool
}

// BatchResult contains the result of a batch conversion.
type BatchResult struct {
	Results               []Result
	SuccessfulCount       int
	FitCount              int
	ValidationFailedCount int
	TotalFiles            int
	TotalSizeReduction    float64
}

// Option configures the optimizer.
type Option func(*Optimizer)

// New creates a new Optimizer with the given options.
func New(opts ...Option) (*Optimizer, error) {
	o := &Optimizer{config: config.NewConfig(".", ".", ".")}

	for _, opt := range opts {
		opt(o)
	}

	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	if err := search.ValidateTarget(o.target); err != nil {
		return nil, err
	}

	return o, nil
}

// WithTarget sets the size limit in bytes. Without a target the optimizer
// keeps the highest quality encode.
func WithTarget(bytes int64) Option {
	return func(o *Optimizer) {
		o.target = &bytes
	}
}

// WithPreset applies a search preset.
func WithPreset(p Preset) Option {
	return func(o *Optimizer) {
		o.config.ApplyPreset(p)
	}
}

// WithLocks pins axes at their highest quality value: gifski quality at
// 100, lossy diffusion at 0, and frame skip at 1.
func WithLocks(quality, diffusion, frameRate bool) Option {
	return func(o *Optimizer) {
		o.config.LockQuality = quality
		o.config.LockDiffusion = diffusion
		o.config.LockFrameRate = frameRate
	}
}

// WithScale scales the output to percent of the source dimensions.
func WithScale(percent int) Option {
	return func(o *Optimizer) {
		o.config.ScalePercent = percent
	}
}

// WithLoopCount sets how many times the GIF plays. Zero loops forever.
func WithLoopCount(n int) Option {
	return func(o *Optimizer) {
		o.config.LoopCount = n
	}
}

// WithPreserveAlpha keeps animated transparency when optimizing.
func WithPreserveAlpha() Option {
	return func(o *Optimizer) {
		o.config.PreserveAlpha = true
	}
}

// WithWorkers caps concurrent trial encodes.
func WithWorkers(n int) Option {
	return func(o *Optimizer) {
		o.config.Workers = n
	}
}

// WithSerialize runs one trial encode at a time.
func WithSerialize() Option {
	return func(o *Optimizer) {
		o.config.Serialize = true
	}
}

// WithKeepPartial keeps the best result found so far when a conversion is
// cancelled.
func WithKeepPartial() Option {
	return func(o *Optimizer) {
		o.config.KeepPartial = true
	}
}

// WithTempDir sets where frame and trial files are written.
func WithTempDir(dir string) Option {
	return func(o *Optimizer) {
		o.config.TempDir = dir
	}
}

// WithHistory records every session in the SQLite database at path.
func WithHistory(path string) Option {
	return func(o *Optimizer) {
		o.config.HistoryPath = path
	}
}

// WithToolPaths overrides the ffmpeg, ffprobe, gifski and gifsicle binaries.
// Empty values keep the defaults.
func WithToolPaths(ffmpeg, ffprobe, gifski, gifsicle string) Option {
	return func(o *Optimizer) {
		for dst, v := range map[*string]string{
			&o.config.FFmpegPath:   ffmpeg,
			&o.config.FFprobePath:  ffprobe,
			&o.config.GifskiPath:   gifski,
			&o.config.GifsiclePath: gifsicle,
		} {
			if v != "" {
				*dst = v
			}
		}
	}
}

// WithImageMagick enables a final ImageMagick layer optimization of the
// chosen GIF. It is kept only when smaller and still within the target. An
// empty path uses "magick" from PATH.
func WithImageMagick(magickPath string) Option {
	return func(o *Optimizer) {
		o.config.UseImageMagick = true
		if magickPath != "" {
			o.config.MagickPath = magickPath
		}
	}
}

// withBackend replaces the external tool pipeline.
func withBackend(b processing.Backend) Option {
	return func(o *Optimizer) {
		o.backend = b
	}
}

// Run converts a single file into outputDir.
func (o *Optimizer) Run(ctx context.Context, input, outputDir string, rep Reporter) (*Result, error) {
	results, err := o.process(ctx, []string{input}, outputDir, rep)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("no output was written for %s", input)
	}

	r := toResult(results[0])
	return &r, nil
}

// RunBatch converts multiple files into outputDir.
func (o *Optimizer) RunBatch(ctx context.Context, inputs []string, outputDir string, rep Reporter) (*BatchResult, error) {
	results, err := o.process(ctx, inputs, outputDir, rep)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{
		TotalFiles: len(inputs),
	}

	var totalInputSize, totalOutputSize int64
	for _, fr := range results {
		r := toResult(fr)
		batch.Results = append(batch.Results, r)
		batch.SuccessfulCount++
		if r.Fits {
			batch.FitCount++
		}
		if r.ValidationPassed != nil && !*r.ValidationPassed {
			batch.ValidationFailedCount++
		}
		totalInputSize += r.OriginalSize
		totalOutputSize += r.OutputSize
	}

	batch.TotalSizeReduction = util.CalculateSizeReduction(totalInputSize, totalOutputSize)

	return batch, nil
}

func (o *Optimizer) process(ctx context.Context, inputs []string, outputDir string, rep Reporter) ([]processing.FileResult, error) {
	cfg := *o.config
	cfg.OutputDir = outputDir

	if err := util.EnsureDirectory(outputDir); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if rep == nil {
		rep = reporter.NullReporter{}
	}

	opts := processing.Options{Target: o.target}
	if cfg.HistoryPath != "" {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		opts.History = store
	}

	backend := o.backend
	if backend == nil {
		backend = processing.NewGifBackend(&cfg)
	}

	return processing.ProcessSources(ctx, &cfg, backend, inputs, opts, rep)
}

func toResult(r processing.FileResult) Result {
	return Result{
		OutputFile:           r.OutputPath,
		SessionID:            r.SessionID,
		State:                r.State.String(),
		Params:               r.Params,
		Fits:                 r.Fits,
		OriginalSize:         r.InputSize,
		OutputSize:           r.OutputSize,
		SizeReductionPercent: util.CalculateSizeReduction(r.InputSize, r.OutputSize),
		Trials:               r.Trials,
		Rounds:               r.Rounds,
		ValidationPassed:     r.ValidationPassed,
	}
}

// FindSources finds convertible files in a directory, skipping outputs of
// earlier runs.
func FindSources(dir string) ([]string, error) {
	res, err := discovery.FindSourceFiles(dir, config.OutputSuffix)
	if err != nil {
		return nil, err
	}
	return res.Files, nil
}
