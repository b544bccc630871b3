package processing

import (
	"context"

	"github.com/five82/gifsizer/internal/config"
	"github.com/five82/gifsizer/internal/ffmpeg"
	"github.com/five82/gifsizer/internal/gifenc"
	"github.com/five82/gifsizer/internal/logging"
	"github.com/five82/gifsizer/internal/validation"
)

// GifBackend drives the ffmpeg, gifski and gifsicle pipeline, with an
// optional ImageMagick final pass. Written outputs are validated with
// ffprobe.
type GifBackend struct {
	*gifenc.Encoder
	validation.FFprobeAnalyzer
}

// NewGifBackend builds a backend from the tool paths and output options in cfg.
func NewGifBackend(cfg *config.Config) *GifBackend {
	enc := gifenc.New(gifenc.Config{
		FFmpegPath:    cfg.FFmpegPath,
		FFprobePath:   cfg.FFprobePath,
		GifskiPath:    cfg.GifskiPath,
		GifsiclePath:  cfg.GifsiclePath,
		MagickPath:    cfg.MagickPath,
		TempDir:       cfg.GetTempDir(),
		ScalePercent:  cfg.ScalePercent,
		LoopCount:     cfg.LoopCount,
		PreserveAlpha: cfg.PreserveAlpha,
		FallbackFPS:   config.DefaultFallbackFPS,
		MaxFPS:        config.MaxSourceFPS,
	})
	return &GifBackend{
		Encoder:         enc,
		FFprobeAnalyzer: validation.FFprobeAnalyzer{FFprobePath: cfg.FFprobePath},
	}
}

// Open probes inputPath and extracts its frames.
func (b *GifBackend) Open(ctx context.Context, inputPath string) (PreparedSource, error) {
	lastPct := float32(-10)
	src, err := b.Prepare(ctx, inputPath, func(p ffmpeg.Progress) {
		if p.Percent-lastPct >= 10 {
			lastPct = p.Percent
			logging.Debug("Extracting frames", "file", inputPath,
				"frame", p.CurrentFrame, "total", p.TotalFrames, "percent", p.Percent)
		}
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}
