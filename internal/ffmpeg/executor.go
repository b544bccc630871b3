package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/logging"
)

// Progress represents extraction progress information.
type Progress struct {
	CurrentFrame uint64
	TotalFrames  uint64
	Percent      float32
	FPS          float32
}

// ProgressCallback is called with progress updates during extraction.
type ProgressCallback func(Progress)

// RunExtract executes an FFmpeg frame extraction with progress reporting.
// totalFrames may be zero when unknown.
func RunExtract(ctx context.Context, params *ExtractParams, totalFrames uint64, callback ProgressCallback) error {
	args := BuildExtractArgs(params)
	logging.Debug("Running ffmpeg", "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, params.FFmpegPath, args...)

	// Get stderr for progress parsing
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return gerrors.NewCommandStartError("ffmpeg", fmt.Errorf("failed to get stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return gerrors.NewCommandStartError("ffmpeg", err)
	}

	var stderrBuilder strings.Builder
	parseProgress(stderr, &stderrBuilder, totalFrames, callback)

	err = cmd.Wait()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	stderrStr := stderrBuilder.String()
	if strings.Contains(stderrStr, "No streams found") || strings.Contains(stderrStr, "does not contain any stream") {
		return gerrors.NewProbeError("no streams found in input file", err)
	}
	return gerrors.WrapExecError("ffmpeg", err, tail(stderrStr, 2048))
}

// parseProgress reads FFmpeg stderr and parses progress updates.
func parseProgress(stderr io.Reader, stderrBuilder *strings.Builder, totalFrames uint64, callback ProgressCallback) {
	reader := bufio.NewReader(stderr)
	var lineBuf strings.Builder

	for {
		b, err := reader.ReadByte()
		if err != nil {
			break
		}

		stderrBuilder.WriteByte(b)

		// Progress lines end with \r or \n
		if b == '\r' || b == '\n' {
			line := lineBuf.String()
			lineBuf.Reset()

			if callback != nil && strings.Contains(line, "frame=") {
				if progress := parseProgressLine(line, totalFrames); progress != nil {
					callback(*progress)
				}
			}
		} else {
			lineBuf.WriteByte(b)
		}
	}
}

// fieldValue returns the token following key= in line.
func fieldValue(line, key string) string {
	idx := strings.Index(line, key+"=")
	if idx < 0 {
		return ""
	}
	remaining := strings.TrimLeft(line[idx+len(key)+1:], " ")
	if end := strings.IndexAny(remaining, " \t"); end >= 0 {
		remaining = remaining[:end]
	}
	return remaining
}

// parseProgressLine extracts progress information from an FFmpeg progress line.
func parseProgressLine(line string, totalFrames uint64) *Progress {
	frame, err := strconv.ParseUint(fieldValue(line, "frame"), 10, 64)
	if err != nil {
		return nil
	}

	p := &Progress{CurrentFrame: frame, TotalFrames: totalFrames}
	if fps, err := strconv.ParseFloat(fieldValue(line, "fps"), 32); err == nil {
		p.FPS = float32(fps)
	}
	if totalFrames > 0 {
		p.Percent = min(float32(frame)/float32(totalFrames)*100, 100)
	}
	return p
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
