// Package ffmpeg extracts source frames with FFmpeg.
package ffmpeg

import "path/filepath"

// FramePattern is the printf pattern of extracted frame files.
const FramePattern = "frame_%05d.png"

// FrameGlob matches the files written with FramePattern.
const FrameGlob = "frame_*.png"

// ExtractParams describes one frame extraction.
type ExtractParams struct {
	FFmpegPath string
	InputPath  string
	OutputDir  string
	// FPS resamples the source; zero keeps its native timing.
	FPS float64
	// Filter is appended to the chain after resampling.
	Filter string
}

// BuildExtractArgs returns the FFmpeg arguments that write every frame of
// the source as an RGBA PNG into OutputDir.
func BuildExtractArgs(p *ExtractParams) []string {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", p.InputPath,
	}

	chain := NewVideoFilterChain().AddFPS(p.FPS).AddFilter(p.Filter)
	if !chain.IsEmpty() {
		args = append(args, "-vf", chain.Build())
	}

	args = append(args,
		"-fps_mode", "passthrough",
		"-pix_fmt", "rgba",
		filepath.Join(p.OutputDir, FramePattern),
	)
	return args
}
