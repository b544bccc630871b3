// Package config provides configuration types and defaults for gifsizer.
package config

import (
	"fmt"
	"strings"

	"github.com/five82/gifsizer/internal/search"
	"github.com/five82/gifsizer/internal/space"
)

// Default constants
const (
	// DefaultScalePercent keeps the source dimensions.
	DefaultScalePercent = 100

	// DefaultLoopCount loops the GIF forever.
	DefaultLoopCount = 0

	// DefaultFallbackFPS is used when the source frame rate cannot be probed.
	DefaultFallbackFPS = 24

	// MaxSourceFPS caps the extraction frame rate.
	MaxSourceFPS = 120

	// DefaultStaleTempMaxAgeHours is the age after which leftover trial
	// directories are removed at startup.
	DefaultStaleTempMaxAgeHours = 24

	DefaultFFmpegPath   = "ffmpeg"
	DefaultFFprobePath  = "ffprobe"
	DefaultGifskiPath   = "gifski"
	DefaultGifsiclePath = "gifsicle"
	DefaultMagickPath   = "magick"

	// OutputSuffix is appended to the source stem for the output GIF.
	OutputSuffix = "_optimized"
)

// Preset represents a bundle of search bounds.
type Preset string

const (
	PresetQuality  Preset = "quality"
	PresetBalanced Preset = "balanced"
	PresetSmall    Preset = "small"
)

// ParsePreset parses a string into a Preset.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(s) {
	case "quality":
		return PresetQuality, nil
	case "balanced":
		return PresetBalanced, nil
	case "small":
		return PresetSmall, nil
	default:
		return "", fmt.Errorf("%w: '%s', valid options: quality, balanced, small", ErrInvalidPreset, s)
	}
}

// String returns the string representation of the preset.
func (p Preset) String() string {
	return string(p)
}

// GetPresetValues returns the search bounds for a given preset.
func GetPresetValues(p Preset) space.Config {
	switch p {
	case PresetQuality:
		// Shallow descent: never drops below q=70 or skips more than every
		// other frame.
		return space.Config{
			QualityMin:    70,
			QualityMax:    space.MaxQuality,
			QualityStep:   5,
			DiffusionMax:  60,
			DiffusionStep: 20,
			FrameSkipMax:  2,
		}
	case PresetSmall:
		return space.Config{
			QualityMin:    20,
			QualityMax:    space.MaxQuality,
			QualityStep:   10,
			DiffusionMax:  200,
			DiffusionStep: 40,
			FrameSkipMax:  6,
		}
	default:
		return space.DefaultConfig()
	}
}

// Options are the user locks that remove axes from the search.
type Options struct {
	// LockQuality pins quality at its maximum.
	LockQuality bool
	// LockDiffusion disables lossy diffusion.
	LockDiffusion bool
	// LockFrameRate keeps every source frame.
	LockFrameRate bool
}

// Locks converts the options into space locks.
func (o Options) Locks() space.Locks {
	return space.Locks{
		Quality:   o.LockQuality,
		Diffusion: o.LockDiffusion,
		FrameRate: o.LockFrameRate,
	}
}

// String lists the locked axes.
func (o Options) String() string {
	var parts []string
	if o.LockQuality {
		parts = append(parts, "quality")
	}
	if o.LockDiffusion {
		parts = append(parts, "diffusion")
	}
	if o.LockFrameRate {
		parts = append(parts, "frame rate")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// Config holds all configuration for a conversion run.
type Config struct {
	// Input/output paths
	InputDir  string
	OutputDir string
	LogDir    string
	TempDir   string // Optional, defaults to OutputDir

	Options

	// Search bounds and budget
	Space       space.Config
	Workers     int // 0 picks a value from the host
	BatchSize   int
	MaxRounds   int
	Serialize   bool
	KeepPartial bool

	// GIF output options
	ScalePercent  int
	LoopCount     int // 0 loops forever, N plays N times
	PreserveAlpha bool

	// UseImageMagick runs a final ImageMagick layer optimization over the
	// chosen GIF, kept only when it shrinks the file.
	UseImageMagick bool

	// External tools
	FFmpegPath   string
	FFprobePath  string
	GifskiPath   string
	GifsiclePath string
	MagickPath   string

	// HistoryPath is the SQLite trial history database. Empty disables it.
	HistoryPath string

	// Selected preset (optional)
	Preset *Preset
}

// NewConfig creates a new Config with default values.
func NewConfig(inputDir, outputDir, logDir string) *Config {
	return &Config{
		InputDir:     inputDir,
		OutputDir:    outputDir,
		LogDir:       logDir,
		Space:        space.DefaultConfig(),
		BatchSize:    search.DefaultBatchSize,
		MaxRounds:    search.DefaultMaxRounds,
		ScalePercent: DefaultScalePercent,
		LoopCount:    DefaultLoopCount,
		FFmpegPath:   DefaultFFmpegPath,
		FFprobePath:  DefaultFFprobePath,
		GifskiPath:   DefaultGifskiPath,
		GifsiclePath: DefaultGifsiclePath,
		MagickPath:   DefaultMagickPath,
	}
}

// ApplyPreset applies the given preset to the config.
func (c *Config) ApplyPreset(p Preset) {
	c.Preset = &p
	c.Space = GetPresetValues(p)
}

// PresetName returns the selected preset, or "custom" when none was applied.
func (c *Config) PresetName() string {
	if c.Preset == nil {
		return "custom"
	}
	return c.Preset.String()
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ScalePercent < 1 || c.ScalePercent > 100 {
		return fmt.Errorf("%w: must be 1-100, got %d", ErrInvalidScale, c.ScalePercent)
	}

	if c.LoopCount < 0 {
		return fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidLoopCount, c.LoopCount)
	}

	if err := c.SearchConfig(nil).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSearch, err)
	}

	for name, path := range map[string]string{
		"ffmpeg":   c.FFmpegPath,
		"ffprobe":  c.FFprobePath,
		"gifski":   c.GifskiPath,
		"gifsicle": c.GifsiclePath,
	} {
		if path == "" {
			return fmt.Errorf("%w: %s", ErrMissingTool, name)
		}
	}
	if c.UseImageMagick && c.MagickPath == "" {
		return fmt.Errorf("%w: magick", ErrMissingTool)
	}

	return nil
}

// GetTempDir returns the temp directory, falling back to OutputDir if not set.
func (c *Config) GetTempDir() string {
	if c.TempDir != "" {
		return c.TempDir
	}
	return c.OutputDir
}

// SearchConfig builds the per-session search configuration.
func (c *Config) SearchConfig(obs search.Observer) search.Config {
	return search.Config{
		Space:       c.Space,
		Locks:       c.Locks(),
		Workers:     c.Workers,
		Serialize:   c.Serialize,
		BatchSize:   c.BatchSize,
		MaxRounds:   c.MaxRounds,
		KeepPartial: c.KeepPartial,
		Observer:    obs,
	}
}

// LoopDescription describes the loop setting for display.
func (c *Config) LoopDescription() string {
	switch c.LoopCount {
	case 0:
		return "forever"
	case 1:
		return "play once"
	default:
		return fmt.Sprintf("play %d times", c.LoopCount)
	}
}

// BoundsDescription summarizes the search bounds for display.
func (c *Config) BoundsDescription() string {
	s := c.Space
	return fmt.Sprintf("q %d-%d/%d, lossy 0-%d/%d, skip 1-%d",
		s.QualityMin, s.QualityMax, s.QualityStep, s.DiffusionMax, s.DiffusionStep, s.FrameSkipMax)
}
