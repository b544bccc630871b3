package validation

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/five82/gifsizer/internal/util"
)

const (
	// minDurationToleranceSecs is the smallest allowed duration difference.
	// GIF frame delays are stored in centiseconds, so long clips drift.
	minDurationToleranceSecs = 0.5
	// durationToleranceFraction scales the tolerance with clip length.
	durationToleranceFraction = 0.05
	// dimensionTolerancePx absorbs rounding in the scaler.
	dimensionTolerancePx = 1
)

// Options contains optional parameters for validation.
type Options struct {
	ExpectedDimensions *[2]int
	ExpectedDuration   *float64
	// ExpectedSize is the size reported by the winning trial; zero skips
	// the comparison.
	ExpectedSize int64
	// MaxSize is the target the output must fit, if any.
	MaxSize *int64
}

// validateDimensions checks that dimensions match expected values.
func validateDimensions(actualW, actualH, expectedW, expectedH int) (bool, string) {
	if abs(actualW-expectedW) <= dimensionTolerancePx && abs(actualH-expectedH) <= dimensionTolerancePx {
		return true, fmt.Sprintf("Dimensions match: %dx%d", actualW, actualH)
	}
	return false, fmt.Sprintf("Dimension mismatch: got %dx%d, expected %dx%d",
		actualW, actualH, expectedW, expectedH)
}

// validateDuration checks that duration is within acceptable tolerance.
func validateDuration(actual, expected float64) (bool, string) {
	diff := math.Abs(actual - expected)
	tolerance := max(minDurationToleranceSecs, expected*durationToleranceFraction)

	if diff <= tolerance {
		return true, fmt.Sprintf("Duration matches input (%.1fs)", actual)
	}
	return false, fmt.Sprintf("Duration mismatch: got %.1fs, expected %.1fs (diff: %.1fs)",
		actual, expected, diff)
}

// validateSize checks the file on disk against the trial's measurement and
// the target.
func validateSize(actual, expected int64, maxSize *int64) (bool, string) {
	if expected > 0 && actual != expected {
		return false, fmt.Sprintf("Size changed after encode: got %s, trial measured %s",
			util.FormatBytes(actual), util.FormatBytes(expected))
	}
	if maxSize != nil && actual > *maxSize {
		return false, fmt.Sprintf("%s exceeds target %s", util.FormatBytes(actual), util.FormatBytes(*maxSize))
	}
	if maxSize != nil {
		return true, fmt.Sprintf("%s within target %s", util.FormatBytes(actual), util.FormatBytes(*maxSize))
	}
	return true, util.FormatBytes(actual)
}

// ValidateOutput checks a written GIF using analyzer.
func ValidateOutput(ctx context.Context, analyzer Analyzer, outputPath string, opts Options) (*Result, error) {
	result := &Result{
		IsDimensionCorrect: true,
		IsDurationCorrect:  true,
	}

	stat, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}
	result.ActualSize = stat.Size()
	result.IsSizeCorrect, result.SizeMessage = validateSize(stat.Size(), opts.ExpectedSize, opts.MaxSize)

	props, err := analyzer.Analyze(ctx, outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get output properties: %w", err)
	}

	result.CodecName = props.CodecName
	result.IsGIF = props.CodecName == "gif"

	if opts.ExpectedDimensions != nil {
		result.ActualDimensions = &[2]int{props.Width, props.Height}
		result.ExpectedDimensions = opts.ExpectedDimensions
		result.IsDimensionCorrect, result.DimensionMessage = validateDimensions(
			props.Width, props.Height,
			opts.ExpectedDimensions[0], opts.ExpectedDimensions[1],
		)
	} else {
		result.DimensionMessage = fmt.Sprintf("%dx%d", props.Width, props.Height)
	}

	// Still images have no duration to compare.
	if opts.ExpectedDuration != nil && *opts.ExpectedDuration > 0 && props.DurationSecs > 0 {
		actual := props.DurationSecs
		result.ActualDuration = &actual
		result.ExpectedDuration = opts.ExpectedDuration
		result.IsDurationCorrect, result.DurationMessage = validateDuration(actual, *opts.ExpectedDuration)
	} else {
		result.DurationMessage = "Duration validation skipped"
	}

	return result, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
