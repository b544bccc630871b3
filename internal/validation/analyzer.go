// Package validation checks converted GIFs after they are written.
package validation

import (
	"context"

	"github.com/five82/gifsizer/internal/ffprobe"
)

// Analyzer reads stream properties of a written output.
// This interface allows validation logic to be tested without external tools.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*ffprobe.SourceInfo, error)
}

// FFprobeAnalyzer implements Analyzer with ffprobe.
type FFprobeAnalyzer struct {
	FFprobePath string
}

// Analyze probes path. No frame rate fallback or cap is applied.
func (a FFprobeAnalyzer) Analyze(ctx context.Context, path string) (*ffprobe.SourceInfo, error) {
	return ffprobe.Probe(ctx, a.FFprobePath, path, 0, 0)
}
