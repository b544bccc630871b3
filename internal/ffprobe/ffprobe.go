// Package ffprobe extracts source properties using ffprobe.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/util"
)

// SourceInfo contains the properties the encoder needs from a source.
type SourceInfo struct {
	Width     int
	Height    int
	FrameRate float64
	// Frames is the container frame count, zero when unknown.
	Frames       uint64
	DurationSecs float64
	CodecName    string
	// FrameRateGuessed is set when no usable rate was reported.
	FrameRateGuessed bool
}

// ffprobeOutput represents the JSON output from ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	CodecName    string `json:"codec_name"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	NbFrames     string `json:"nb_frames"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	Duration     string `json:"duration"`
}

// runFFprobe executes ffprobe and returns the parsed output.
func runFFprobe(ctx context.Context, ffprobePath, inputPath string) (*ffprobeOutput, error) {
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-select_streams", "v:0",
		inputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, gerrors.WrapExecError("ffprobe", err, stderr.String())
	}

	return parseFFprobeOutput(output)
}

func parseFFprobeOutput(data []byte) (*ffprobeOutput, error) {
	var result ffprobeOutput
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, gerrors.NewProbeError("failed to parse ffprobe output", err)
	}
	return &result, nil
}

// Probe returns the properties of the first video stream of inputPath.
// fallbackFPS is used when the stream reports no sane frame rate; rates
// above maxFPS are clamped.
func Probe(ctx context.Context, ffprobePath, inputPath string, fallbackFPS, maxFPS float64) (*SourceInfo, error) {
	probe, err := runFFprobe(ctx, ffprobePath, inputPath)
	if err != nil {
		return nil, err
	}
	info, err := extractSourceInfo(probe, fallbackFPS, maxFPS)
	if err != nil {
		return nil, gerrors.NewProbeError(fmt.Sprintf("%s: %v", inputPath, err), nil)
	}
	return info, nil
}

// extractSourceInfo converts parsed ffprobe output into SourceInfo.
func extractSourceInfo(probe *ffprobeOutput, fallbackFPS, maxFPS float64) (*SourceInfo, error) {
	var video *ffprobeStream
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			video = &probe.Streams[i]
			break
		}
	}
	if video == nil {
		return nil, fmt.Errorf("no video stream found")
	}
	if video.Width <= 0 || video.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", video.Width, video.Height)
	}

	info := &SourceInfo{
		Width:     video.Width,
		Height:    video.Height,
		CodecName: video.CodecName,
	}

	for _, d := range []string{probe.Format.Duration, video.Duration} {
		if v, err := strconv.ParseFloat(d, 64); err == nil && v > 0 {
			info.DurationSecs = v
			break
		}
	}

	if video.NbFrames != "" {
		if frames, err := strconv.ParseUint(video.NbFrames, 10, 64); err == nil {
			info.Frames = frames
		}
	}

	// avg_frame_rate reflects variable-rate GIF sources better than r_frame_rate.
	for _, r := range []string{video.AvgFrameRate, video.RFrameRate} {
		if fps, ok := util.ParseFraction(r); ok && fps >= 1 && !math.IsInf(fps, 0) {
			info.FrameRate = fps
			break
		}
	}
	if info.FrameRate == 0 {
		info.FrameRate = fallbackFPS
		info.FrameRateGuessed = true
	}
	if maxFPS > 0 && info.FrameRate > maxFPS {
		info.FrameRate = maxFPS
	}

	if info.Frames == 0 && info.DurationSecs > 0 {
		info.Frames = uint64(math.Round(info.DurationSecs * info.FrameRate))
	}

	return info, nil
}

// Resolution formats the dimensions as WxH.
func (s *SourceInfo) Resolution() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}
