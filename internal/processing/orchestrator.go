// Package processing runs size-targeting conversions for a list of sources.
package processing

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/five82/gifsizer/internal/config"
	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/executor"
	"github.com/five82/gifsizer/internal/ffprobe"
	"github.com/five82/gifsizer/internal/gifenc"
	"github.com/five82/gifsizer/internal/history"
	"github.com/five82/gifsizer/internal/logging"
	"github.com/five82/gifsizer/internal/reporter"
	"github.com/five82/gifsizer/internal/search"
	"github.com/five82/gifsizer/internal/trial"
	"github.com/five82/gifsizer/internal/util"
	"github.com/five82/gifsizer/internal/validation"
)

// PreparedSource is an input ready for trial encodes.
type PreparedSource interface {
	trial.Source
	Info() *ffprobe.SourceInfo
	Close() error
}

// Backend prepares sources and encodes trials for them. Backends that also
// implement validation.Analyzer have their outputs validated.
type Backend interface {
	trial.Encoder
	trial.Discarder
	Open(ctx context.Context, inputPath string) (PreparedSource, error)
}

// Polisher is implemented by backends that offer a final size pass over the
// chosen artifact. The pass writes a new artifact and leaves the input alone.
type Polisher interface {
	Polish(ctx context.Context, artifact string) (trial.Result, error)
}

// Options are the per-run inputs that are not part of the config.
type Options struct {
	// Target is the size limit in bytes. Nil accepts the baseline.
	Target *int64
	// FilenameOverride names the output of a single input.
	FilenameOverride string
	// History records sessions when non-nil.
	History *history.Store
}

// FileResult contains the result of a single conversion.
type FileResult struct {
	Filename   string
	InputPath  string
	OutputPath string
	SessionID  string
	State      search.State
	Params     string
	Fits       bool
	InputSize  int64
	OutputSize int64
	Trials     int
	Rounds     int
	Duration   time.Duration
	// ValidationPassed is nil when the output was not validated.
	ValidationPassed *bool
}

// ProcessSources converts every file in filesToProcess and reports progress
// through rep. Per-file failures are reported and skipped; the returned
// error is non-nil only for invalid configuration.
func ProcessSources(
	ctx context.Context,
	cfg *config.Config,
	backend Backend,
	filesToProcess []string,
	opts Options,
	rep reporter.Reporter,
) ([]FileResult, error) {
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, gerrors.NewConfigError(err.Error())
	}
	if err := search.ValidateTarget(opts.Target); err != nil {
		return nil, err
	}

	sysInfo := util.GetSystemInfo()
	rep.Hardware(reporter.HardwareSummary{
		Hostname: sysInfo.Hostname,
		Cores:    util.PhysicalCores(),
	})

	if len(filesToProcess) > 1 {
		var fileNames []string
		for _, f := range filesToProcess {
			fileNames = append(fileNames, filepath.Base(f))
		}
		rep.BatchStarted(reporter.BatchStartInfo{
			TotalFiles: len(filesToProcess),
			FileList:   fileNames,
			OutputDir:  cfg.OutputDir,
		})
	}

	rep.SearchConfig(searchConfigSummary(cfg, opts.Target))

	var results []FileResult
	for fileIdx, inputPath := range filesToProcess {
		if ctx.Err() != nil {
			rep.Warning(fmt.Sprintf("Conversion cancelled: %v", ctx.Err()))
			break
		}

		if len(filesToProcess) > 1 {
			rep.FileProgress(reporter.FileProgressContext{
				CurrentFile: fileIdx + 1,
				TotalFiles:  len(filesToProcess),
			})
		}

		override := ""
		if len(filesToProcess) == 1 {
			override = opts.FilenameOverride
		}
		outputPath := OutputPath(inputPath, cfg.OutputDir, override)

		if util.FileExists(outputPath) {
			rep.Warning(fmt.Sprintf("Output file already exists: %s. Skipping.", outputPath))
			continue
		}

		result, ok := processOne(ctx, cfg, backend, inputPath, outputPath, opts, rep)
		if ok {
			results = append(results, result)
		}
		if result.State == search.Cancelled {
			break
		}
	}

	summarize(results, len(filesToProcess), rep)
	return results, nil
}

// OutputPath returns where the GIF for inputPath is written.
func OutputPath(inputPath, outputDir, override string) string {
	if override == "" {
		override = util.GetFileStem(inputPath) + config.OutputSuffix + ".gif"
	}
	return util.ResolveOutputPath(inputPath, outputDir, override)
}

// processOne runs one search session and moves the chosen artifact to
// outputPath. ok is false when nothing was written.
func processOne(
	ctx context.Context,
	cfg *config.Config,
	backend Backend,
	inputPath, outputPath string,
	opts Options,
	rep reporter.Reporter,
) (FileResult, bool) {
	start := time.Now()
	filename := filepath.Base(inputPath)
	result := FileResult{Filename: filename, InputPath: inputPath}
	result.InputSize, _ = util.GetFileSize(inputPath)

	src, err := backend.Open(ctx, inputPath)
	if err != nil {
		if ctx.Err() != nil {
			result.State = search.Cancelled
			return result, false
		}
		rep.Error(reporter.ReporterError{
			Title:      "Analysis Error",
			Message:    fmt.Sprintf("Could not prepare %s: %v", filename, err),
			Context:    fmt.Sprintf("File: %s", inputPath),
			Suggestion: "Check that ffmpeg and ffprobe are installed and the file is a valid video or animation",
		})
		return result, false
	}
	defer func() {
		if err := src.Close(); err != nil {
			logging.Warn("Failed to remove working directory", "file", inputPath, "error", err)
		}
	}()

	info := src.Info()
	rep.Initialization(reporter.InitializationSummary{
		InputFile:  filename,
		OutputFile: filepath.Base(outputPath),
		Duration:   util.FormatDuration(time.Duration(info.DurationSecs * float64(time.Second))),
		Resolution: info.Resolution(),
		FrameRate:  info.FrameRate,
		Frames:     int(info.Frames),
		InputSize:  result.InputSize,
	})

	searchCfg := cfg.SearchConfig(nil)
	if searchCfg.Workers == 0 {
		// gifski holds every frame in memory, so large sources get fewer workers.
		searchCfg.Workers = executor.CalculateWorkers(util.PhysicalCores(),
			uint32(gifenc.ScaleDimension(info.Width, cfg.ScalePercent)),
			uint32(gifenc.ScaleDimension(info.Height, cfg.ScalePercent)),
			int(info.Frames))
		logging.Debug("Sized worker pool", "file", filename, "workers", searchCfg.Workers)
	}
	searchCfg.Observer = newSearchObserver(rep, opts.Target, searchCfg)

	res, runErr := search.Run(ctx, backend, src, searchCfg, opts.Target)
	if res == nil {
		rep.Error(reporter.ReporterError{
			Title:   "Search Error",
			Message: fmt.Sprintf("Could not start search for %s: %v", filename, runErr),
			Context: fmt.Sprintf("File: %s", inputPath),
		})
		return result, false
	}

	result.SessionID = res.ID
	result.State = res.State
	result.Trials = res.Trials
	result.Rounds = res.Rounds
	result.Fits = res.Fits()

	chosen := res.Winner
	if chosen == nil && res.State == search.Exhausted && res.Smallest != nil {
		chosen = res.Smallest
		rep.Warning(fmt.Sprintf("%s: target not reachable, keeping smallest result (%s)",
			filename, util.FormatBytes(chosen.Outcome.SizeBytes)))
	}

	written := false
	var final trial.Result
	if chosen != nil {
		final = trial.Result{SizeBytes: chosen.Outcome.SizeBytes, Artifact: chosen.Outcome.Artifact}
		if p, ok := backend.(Polisher); ok && cfg.UseImageMagick {
			final = polish(ctx, p, backend, filename, final, opts.Target, rep)
		}

		if err := util.MoveFile(final.Artifact, outputPath); err != nil {
			rep.Error(reporter.ReporterError{
				Title:   "Output Error",
				Message: fmt.Sprintf("Could not write %s: %v", outputPath, err),
				Context: fmt.Sprintf("File: %s", inputPath),
			})
			_ = backend.Discard(final.Artifact)
		} else {
			written = true
			result.OutputPath = outputPath
			result.Params = chosen.Params.String()
			result.OutputSize = final.SizeBytes
			result.Fits = result.Fits || (opts.Target != nil && final.SizeBytes <= *opts.Target)
		}
	}

	result.Duration = time.Since(start)

	if opts.History != nil {
		sess, trials := history.FromResult(res, inputPath, result.OutputPath)
		if err := opts.History.Record(context.WithoutCancel(ctx), sess, trials); err != nil {
			logging.Warn("Failed to record history", "session", res.ID, "error", err)
		}
	}

	if runErr != nil {
		suggestion := "Run with --verbose for details"
		if gerrors.IsAllTrialsFailed(runErr) {
			suggestion = "Check that gifski and gifsicle are installed; run with --verbose for details"
		}
		rep.Error(reporter.ReporterError{
			Title:      "Encoding Error",
			Message:    fmt.Sprintf("Trial encodes failed for %s: %v", filename, runErr),
			Context:    fmt.Sprintf("File: %s", inputPath),
			Suggestion: suggestion,
		})
	}

	var target int64
	if opts.Target != nil {
		target = *opts.Target
	}
	rep.SearchComplete(reporter.SearchOutcome{
		InputFile:  filename,
		OutputPath: result.OutputPath,
		State:      res.State.String(),
		Params:     result.Params,
		InputSize:  result.InputSize,
		OutputSize: result.OutputSize,
		Target:     target,
		Trials:     res.Trials,
		Rounds:     res.Rounds,
		Failures:   res.Failures(),
		TotalTime:  result.Duration,
	})

	if written {
		if analyzer, ok := backend.(validation.Analyzer); ok {
			fits := opts.Target != nil && final.SizeBytes <= *opts.Target
			result.ValidationPassed = validateOutput(ctx, cfg, analyzer, info, outputPath,
				final.SizeBytes, fits, opts.Target, rep)
		}
	}

	return result, written
}

// polish runs the backend's final pass over cur and returns whichever
// artifact should be written. The other one is discarded. A failed pass
// keeps cur.
func polish(
	ctx context.Context,
	p Polisher,
	backend Backend,
	filename string,
	cur trial.Result,
	target *int64,
	rep reporter.Reporter,
) trial.Result {
	polished, err := p.Polish(ctx, cur.Artifact)
	if err != nil {
		rep.Warning(fmt.Sprintf("%s: final ImageMagick pass failed, keeping search result: %v", filename, err))
		return cur
	}

	if !keepPolished(cur.SizeBytes, polished.SizeBytes, target) {
		logging.Info("Final pass did not help", "file", filename,
			"size", cur.SizeBytes, "polished", polished.SizeBytes)
		if err := backend.Discard(polished.Artifact); err != nil {
			logging.Warn("Failed to discard polished artifact", "file", filename, "error", err)
		}
		return cur
	}

	logging.Info("Final pass applied", "file", filename,
		"from", util.FormatBytes(cur.SizeBytes), "to", util.FormatBytes(polished.SizeBytes))
	if err := backend.Discard(cur.Artifact); err != nil {
		logging.Warn("Failed to discard search artifact", "file", filename, "error", err)
	}
	return polished
}

// keepPolished reports whether a polished output replaces the original: it
// must be smaller, and must not break a target the original met.
func keepPolished(orig, polished int64, target *int64) bool {
	if polished <= 0 || polished >= orig {
		return false
	}
	if target != nil && orig <= *target && polished > *target {
		return false
	}
	return true
}

// validateOutput checks the written GIF and reports each step. It returns
// nil when validation could not run.
func validateOutput(
	ctx context.Context,
	cfg *config.Config,
	analyzer validation.Analyzer,
	info *ffprobe.SourceInfo,
	outputPath string,
	size int64,
	fits bool,
	target *int64,
	rep reporter.Reporter,
) *bool {
	vopts := validation.Options{
		ExpectedDimensions: &[2]int{
			gifenc.ScaleDimension(info.Width, cfg.ScalePercent),
			gifenc.ScaleDimension(info.Height, cfg.ScalePercent),
		},
		ExpectedDuration: &info.DurationSecs,
		ExpectedSize:     size,
	}
	if fits {
		vopts.MaxSize = target
	}

	res, err := validation.ValidateOutput(ctx, analyzer, outputPath, vopts)
	if err != nil {
		rep.Warning(fmt.Sprintf("Could not validate %s: %v", filepath.Base(outputPath), err))
		return nil
	}

	steps := res.GetValidationSteps()
	summary := reporter.ValidationSummary{Passed: res.IsValid()}
	for _, step := range steps {
		summary.Steps = append(summary.Steps, reporter.ValidationStep{
			Name:    step.Name,
			Passed:  step.Passed,
			Details: step.Details,
		})
	}
	rep.ValidationComplete(summary)

	if !summary.Passed {
		logging.Warn("Output failed validation", "file", outputPath, "failures", res.GetFailures())
	}
	return &summary.Passed
}

func searchConfigSummary(cfg *config.Config, target *int64) reporter.SearchConfigSummary {
	workers := cfg.Workers
	if workers == 0 {
		workers = executor.DefaultWorkers()
	}
	if cfg.Serialize {
		workers = 1
	}
	targetDesc := "none (best quality)"
	if target != nil {
		targetDesc = util.FormatBytes(*target)
	}
	return reporter.SearchConfigSummary{
		Preset:    cfg.PresetName(),
		Target:    targetDesc,
		Locks:     cfg.Options.String(),
		Bounds:    cfg.BoundsDescription(),
		Workers:   workers,
		BatchSize: cfg.BatchSize,
		MaxRounds: cfg.MaxRounds,
		Scale:     cfg.ScalePercent,
		Loop:      cfg.LoopDescription(),
	}
}

func summarize(results []FileResult, totalFiles int, rep reporter.Reporter) {
	switch {
	case len(results) == 0:
		rep.Warning("No files were successfully converted")
	case totalFiles == 1:
		rep.OperationComplete(fmt.Sprintf("Successfully converted %s", results[0].Filename))
	default:
		summary := reporter.BatchSummary{
			SuccessfulCount: len(results),
			TotalFiles:      totalFiles,
		}
		for _, r := range results {
			summary.TotalDuration += r.Duration
			summary.TotalInputSize += r.InputSize
			summary.TotalOutputSize += r.OutputSize
			summary.TotalTrials += r.Trials
			if !r.Fits {
				summary.ExhaustedCount++
			}
			if r.ValidationPassed != nil && !*r.ValidationPassed {
				summary.ValidationFailedCount++
			}
			summary.FileResults = append(summary.FileResults, reporter.FileResult{
				Filename: r.Filename,
				State:    r.State.String(),
				Size:     r.OutputSize,
			})
		}
		rep.BatchComplete(summary)
	}
}
