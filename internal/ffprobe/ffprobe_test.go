package ffprobe

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// loadTestData loads a JSON fixture from the testdata directory.
func loadTestData(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", filename))
	if err != nil {
		t.Fatalf("failed to load test data %s: %v", filename, err)
	}
	return data
}

func TestExtractSourceInfo_Video(t *testing.T) {
	probe, err := parseFFprobeOutput(loadTestData(t, "video_720p.json"))
	if err != nil {
		t.Fatalf("parseFFprobeOutput() error = %v", err)
	}

	info, err := extractSourceInfo(probe, 24, 120)
	if err != nil {
		t.Fatalf("extractSourceInfo() error = %v", err)
	}

	if info.Width != 1280 || info.Height != 720 {
		t.Errorf("dimensions = %s, want 1280x720", info.Resolution())
	}
	if math.Abs(info.FrameRate-29.97) > 0.01 {
		t.Errorf("FrameRate = %f, want ~29.97", info.FrameRate)
	}
	if info.FrameRateGuessed {
		t.Error("FrameRateGuessed = true for a reported rate")
	}
	if info.Frames != 300 {
		t.Errorf("Frames = %d, want 300", info.Frames)
	}
	if info.CodecName != "h264" {
		t.Errorf("CodecName = %q, want h264", info.CodecName)
	}
}

func TestExtractSourceInfo_FallbackRate(t *testing.T) {
	probe, err := parseFFprobeOutput(loadTestData(t, "gif_no_rate.json"))
	if err != nil {
		t.Fatalf("parseFFprobeOutput() error = %v", err)
	}

	info, err := extractSourceInfo(probe, 24, 120)
	if err != nil {
		t.Fatalf("extractSourceInfo() error = %v", err)
	}
	if info.FrameRate != 24 || !info.FrameRateGuessed {
		t.Errorf("FrameRate = %f guessed=%v, want fallback 24", info.FrameRate, info.FrameRateGuessed)
	}
	if info.Frames != 48 {
		t.Errorf("Frames = %d, want 48 estimated from duration", info.Frames)
	}
}

func TestExtractSourceInfo_ClampsRate(t *testing.T) {
	probe := &ffprobeOutput{Streams: []ffprobeStream{{
		CodecType:    "video",
		Width:        64,
		Height:       64,
		AvgFrameRate: "240/1",
	}}}

	info, err := extractSourceInfo(probe, 24, 120)
	if err != nil {
		t.Fatalf("extractSourceInfo() error = %v", err)
	}
	if info.FrameRate != 120 {
		t.Errorf("FrameRate = %f, want clamped 120", info.FrameRate)
	}
}

func TestExtractSourceInfo_NoVideoStream(t *testing.T) {
	probe, err := parseFFprobeOutput(loadTestData(t, "audio_only.json"))
	if err != nil {
		t.Fatalf("parseFFprobeOutput() error = %v", err)
	}
	if _, err := extractSourceInfo(probe, 24, 120); err == nil {
		t.Error("expected error for source without video")
	}
}

func TestExtractSourceInfo_InvalidDimensions(t *testing.T) {
	probe := &ffprobeOutput{Streams: []ffprobeStream{{CodecType: "video", AvgFrameRate: "25/1"}}}
	if _, err := extractSourceInfo(probe, 24, 120); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

func TestParseFFprobeOutput_MalformedJSON(t *testing.T) {
	if _, err := parseFFprobeOutput([]byte("{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}
