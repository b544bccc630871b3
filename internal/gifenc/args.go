package gifenc

import (
	"fmt"
	"strconv"
)

// LoopFlag converts a play count into the gifsicle loop option. Zero loops
// forever and returns no flag; one plays once.
func LoopFlag(count int) string {
	switch {
	case count == 1:
		return "--no-loop"
	case count > 1:
		return fmt.Sprintf("--loop=%d", count-1)
	default:
		return ""
	}
}

// ScaleDimension scales a source dimension by percent, never below 1.
func ScaleDimension(size, percent int) int {
	return max(size*percent/100, 1)
}

// SelectFrames keeps every skip-th frame, starting with the first.
func SelectFrames(frames []string, skip int) []string {
	if skip <= 1 {
		return frames
	}
	out := make([]string, 0, (len(frames)+skip-1)/skip)
	for i := 0; i < len(frames); i += skip {
		out = append(out, frames[i])
	}
	return out
}

// GifskiArgs holds the inputs of one gifski run.
type GifskiArgs struct {
	Output  string
	Quality int
	FPS     float64
	Width   int
	Height  int
	Frames  []string
}

// Build returns the gifski command line arguments.
func (a GifskiArgs) Build() []string {
	args := []string{
		"--output", a.Output,
		"--quality", strconv.Itoa(a.Quality),
		"--fps", strconv.FormatFloat(a.FPS, 'f', -1, 64),
		"--width", strconv.Itoa(a.Width),
		"--height", strconv.Itoa(a.Height),
		"--no-sort",
		"--quiet",
	}
	return append(args, a.Frames...)
}

// GifsicleArgs holds the inputs of one gifsicle optimization pass.
type GifsicleArgs struct {
	Input         string
	Output        string
	Lossy         int
	LoopCount     int
	PreserveAlpha bool
}

// Build returns the gifsicle command line arguments.
func (a GifsicleArgs) Build() []string {
	args := []string{
		fmt.Sprintf("--lossy=%d", a.Lossy),
		"-O3",
		"--careful",
		"--no-warnings",
		"--no-ignore-errors",
		"--resize-method=sample",
	}
	if flag := LoopFlag(a.LoopCount); flag != "" {
		args = append(args, flag)
	}
	if a.PreserveAlpha {
		args = append(args, "--optimize-transparency", "--no-conserve-memory")
	}
	return append(args, "-i", a.Input, "-o", a.Output)
}

// MagickArgs holds the inputs of the final ImageMagick layer optimization.
type MagickArgs struct {
	Input  string
	Output string
}

// Build returns the magick command line arguments.
func (a MagickArgs) Build() []string {
	return []string{
		a.Input,
		"-coalesce",
		"-layers", "optimize",
		"-fuzz", "0%",
		"-layers", "optimize-transparency",
		"-quiet",
		a.Output,
	}
}
