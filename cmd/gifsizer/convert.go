package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/five82/gifsizer/internal/config"
	"github.com/five82/gifsizer/internal/discovery"
	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/gifenc"
	"github.com/five82/gifsizer/internal/history"
	"github.com/five82/gifsizer/internal/logging"
	"github.com/five82/gifsizer/internal/processing"
	"github.com/five82/gifsizer/internal/reporter"
	"github.com/five82/gifsizer/internal/util"
)

// convertArgs holds the parsed arguments for the convert command.
type convertArgs struct {
	inputPath string
	outputDir string
	logDir    string
	tempDir   string
	verbose   bool
	noLog     bool
	jsonOut   bool

	size   string
	preset string

	lockQuality   bool
	lockDiffusion bool
	lockFrameRate bool
	preserveAlpha bool
	scale         int
	loop          int
	imageMagick   bool

	workers     int
	batchSize   int
	maxRounds   int
	serialize   bool
	keepPartial bool

	settingsPath string
	saveSettings bool
	historyPath  string
	noHistory    bool

	ffmpegPath   string
	ffprobePath  string
	gifskiPath   string
	gifsiclePath string
	magickPath   string
}

func newConvertCmd() *cobra.Command {
	var ca convertArgs

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert files to GIFs under a target size",
		Long: `Convert a file, or every supported file in a directory, to an optimized GIF.

Without --size the highest quality encode is kept. With --size the search
lowers gifski quality, raises gifsicle lossy compression and skips frames
only as far as needed to fit. Bare sizes are in KiB; K, M and G suffixes
are accepted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeConvert(cmd, ca)
		},
	}

	bindConvertFlags(cmd, &ca)
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func bindConvertFlags(cmd *cobra.Command, ca *convertArgs) {
	f := cmd.Flags()
	f.StringVarP(&ca.inputPath, "input", "i", "", "Input file or directory (required)")
	f.StringVarP(&ca.outputDir, "output", "o", "", "Output directory, or a .gif filename for a single input (required)")
	f.StringVarP(&ca.logDir, "log-dir", "l", "", "Log directory (defaults to OUTPUT/logs)")
	f.StringVar(&ca.tempDir, "temp-dir", "", "Directory for extracted frames and trial files (defaults to OUTPUT)")
	f.BoolVarP(&ca.verbose, "verbose", "v", false, "Enable debug logging")
	f.BoolVar(&ca.noLog, "no-log", false, "Disable log file creation")
	f.BoolVar(&ca.jsonOut, "json", false, "Write NDJSON progress events to stdout")

	f.StringVarP(&ca.size, "size", "s", "", "Target size (e.g. 500, 512K, 1.5M); bare numbers are KiB")
	f.StringVar(&ca.preset, "preset", "", "Search preset (quality, balanced, small)")

	f.BoolVar(&ca.lockQuality, "lock-quality", false, "Keep gifski quality at 100")
	f.BoolVar(&ca.lockDiffusion, "lock-lossy", false, "Disable gifsicle lossy compression")
	f.BoolVar(&ca.lockFrameRate, "lock-frame-rate", false, "Never drop frames")
	f.BoolVar(&ca.preserveAlpha, "preserve-alpha", false, "Preserve animated transparency")
	f.IntVar(&ca.scale, "scale", config.DefaultScalePercent, "Output size as a percent of the source dimensions")
	f.IntVar(&ca.loop, "loop", config.DefaultLoopCount, "Times to play the GIF (0 = forever)")
	f.BoolVar(&ca.imageMagick, "imagemagick", false, "Run a final ImageMagick layer optimization, kept only if smaller")

	f.IntVar(&ca.workers, "workers", 0, "Concurrent trial encodes (0 = auto)")
	f.IntVar(&ca.batchSize, "batch", 0, "Candidates per search round (0 = default)")
	f.IntVar(&ca.maxRounds, "max-rounds", 0, "Maximum search rounds (0 = default)")
	f.BoolVar(&ca.serialize, "serialize", false, "Run one trial encode at a time")
	f.BoolVar(&ca.keepPartial, "keep-partial", false, "Keep the best fitting result when interrupted")

	f.StringVar(&ca.settingsPath, "settings", "", "Settings file (defaults to the user config directory)")
	f.BoolVar(&ca.saveSettings, "save-settings", false, "Save lock, alpha, loop, scale and ImageMagick options as defaults")
	f.StringVar(&ca.historyPath, "history-db", "", "Trial history database (defaults to the user config directory)")
	f.BoolVar(&ca.noHistory, "no-history", false, "Do not record trial history")

	f.StringVar(&ca.ffmpegPath, "ffmpeg", config.DefaultFFmpegPath, "ffmpeg binary")
	f.StringVar(&ca.ffprobePath, "ffprobe", config.DefaultFFprobePath, "ffprobe binary")
	f.StringVar(&ca.gifskiPath, "gifski", config.DefaultGifskiPath, "gifski binary")
	f.StringVar(&ca.gifsiclePath, "gifsicle", config.DefaultGifsiclePath, "gifsicle binary")
	f.StringVar(&ca.magickPath, "magick", config.DefaultMagickPath, "ImageMagick binary")
}

func executeConvert(cmd *cobra.Command, ca convertArgs) error {
	inputPath, err := filepath.Abs(ca.inputPath)
	if err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	inputInfo, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("input path does not exist: %s", inputPath)
	}

	outputArg, err := filepath.Abs(ca.outputDir)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	out, err := util.ResolveOutputArg(inputPath, outputArg)
	if err != nil {
		return err
	}
	if err := util.EnsureDirectory(out.OutputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	logDir := ca.logDir
	if logDir == "" {
		logDir = filepath.Join(out.OutputDir, "logs")
	}
	runLog, err := logging.Setup(logDir, ca.verbose, ca.noLog)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer func() { _ = runLog.Close() }()
	if path := runLog.FilePath(); path != "" && !ca.jsonOut {
		fmt.Fprintf(cmd.ErrOrStderr(), "Log file: %s\n", path)
	}

	cfg, err := buildConfig(cmd, ca, inputPath, out.OutputDir, logDir)
	if err != nil {
		return err
	}

	var filesToProcess []string
	if inputInfo.IsDir() {
		found, err := discovery.FindSourceFiles(inputPath, config.OutputSuffix)
		if gerrors.IsNoFilesFound(err) {
			return fmt.Errorf("%w; pass a video or animation file, or a directory that contains one", err)
		}
		if err != nil {
			return err
		}
		filesToProcess = found.Files
	} else {
		filesToProcess = []string{inputPath}
		logging.Info("Processing single file", "path", inputPath)
	}

	var target *int64
	if ca.size != "" {
		bytes, err := util.ParseSize(ca.size)
		if err != nil {
			return fmt.Errorf("invalid --size: %w", err)
		}
		target = &bytes
	}

	if err := util.EnsureDirectoryWritable(cfg.GetTempDir()); err != nil {
		return fmt.Errorf("temp directory is not writable: %w", err)
	}
	maxAge := time.Duration(config.DefaultStaleTempMaxAgeHours) * time.Hour
	if n, err := util.CleanupStaleTempFiles(cfg.GetTempDir(), gifenc.TempPrefix, maxAge); err != nil {
		logging.Warn("Failed to clean stale temp files", "dir", cfg.GetTempDir(), "error", err)
	} else if n > 0 {
		logging.Info("Removed stale temp files", "count", n)
	}

	opts := processing.Options{Target: target, FilenameOverride: out.FilenameOverride}
	if cfg.HistoryPath != "" {
		store, err := openHistory(cfg.HistoryPath)
		if err != nil {
			logging.Warn("Trial history disabled", "error", err)
		} else {
			defer func() { _ = store.Close() }()
			opts.History = store
		}
	}

	logging.Info("Configuration",
		"output_dir", cfg.OutputDir,
		"preset", cfg.PresetName(),
		"bounds", cfg.BoundsDescription(),
		"locks", cfg.Options.String(),
		"scale", cfg.ScalePercent,
		"loop", cfg.LoopDescription(),
		"workers", cfg.Workers,
		"history", cfg.HistoryPath,
	)

	var rep reporter.Reporter = reporter.NewTerminalReporter()
	if ca.jsonOut {
		rep = reporter.NewJSONReporter()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := processing.ProcessSources(ctx, cfg, processing.NewGifBackend(cfg), filesToProcess, opts, rep)
	if err != nil {
		return err
	}
	logging.Info("Run finished", "converted", len(results), "files", len(filesToProcess))
	if ctx.Err() != nil {
		return fmt.Errorf("interrupted")
	}
	if len(results) == 0 {
		return fmt.Errorf("no files were converted")
	}
	return nil
}

// buildConfig layers defaults, preset, saved settings and explicit flags.
func buildConfig(cmd *cobra.Command, ca convertArgs, inputPath, outputDir, logDir string) (*config.Config, error) {
	cfg := config.NewConfig(inputPath, outputDir, logDir)

	if ca.preset != "" {
		preset, err := config.ParsePreset(ca.preset)
		if err != nil {
			return nil, err
		}
		cfg.ApplyPreset(preset)
	}

	settingsPath := ca.settingsPath
	if settingsPath == "" {
		p, err := config.DefaultSettingsPath()
		if err != nil {
			logging.Warn("Saved settings unavailable", "error", err)
		}
		settingsPath = p
	}
	if settingsPath != "" {
		saved, err := config.LoadSettings(settingsPath)
		if err != nil {
			return nil, err
		}
		cfg.ApplySettings(saved)
	}

	flags := cmd.Flags()
	if flags.Changed("lock-quality") {
		cfg.LockQuality = ca.lockQuality
	}
	if flags.Changed("lock-lossy") {
		cfg.LockDiffusion = ca.lockDiffusion
	}
	if flags.Changed("lock-frame-rate") {
		cfg.LockFrameRate = ca.lockFrameRate
	}
	if flags.Changed("preserve-alpha") {
		cfg.PreserveAlpha = ca.preserveAlpha
	}
	if flags.Changed("scale") {
		cfg.ScalePercent = ca.scale
	}
	if flags.Changed("loop") {
		cfg.LoopCount = ca.loop
	}
	if flags.Changed("imagemagick") {
		cfg.UseImageMagick = ca.imageMagick
	}

	cfg.TempDir = ca.tempDir
	cfg.Workers = ca.workers
	if ca.batchSize > 0 {
		cfg.BatchSize = ca.batchSize
	}
	if ca.maxRounds > 0 {
		cfg.MaxRounds = ca.maxRounds
	}
	cfg.Serialize = ca.serialize
	cfg.KeepPartial = ca.keepPartial

	cfg.FFmpegPath = ca.ffmpegPath
	cfg.FFprobePath = ca.ffprobePath
	cfg.GifskiPath = ca.gifskiPath
	cfg.GifsiclePath = ca.gifsiclePath
	cfg.MagickPath = ca.magickPath

	if !ca.noHistory {
		cfg.HistoryPath = ca.historyPath
		if cfg.HistoryPath == "" {
			p, err := config.DefaultHistoryPath()
			if err != nil {
				logging.Warn("Trial history unavailable", "error", err)
			}
			cfg.HistoryPath = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if ca.saveSettings {
		if settingsPath == "" {
			return nil, fmt.Errorf("no settings path available, use --settings")
		}
		if err := config.SaveSettings(settingsPath, cfg.Settings()); err != nil {
			return nil, err
		}
		logging.Info("Saved settings", "path", settingsPath)
	}

	return cfg, nil
}

func openHistory(path string) (*history.Store, error) {
	if err := util.EnsureDirectory(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return history.Open(path)
}
