// Package util provides formatting, file and system helpers.
package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dustin/go-humanize"
)

const (
	KiB = 1024
	MiB = KiB * 1024
	GiB = MiB * 1024
)

// FormatBytes formats bytes with binary units (B, KiB, MiB, GiB).
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return humanize.IBytes(uint64(bytes))
}

// FormatDuration formats d as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "??:??:??"
	}
	totalSecs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", totalSecs/3600, (totalSecs%3600)/60, totalSecs%60)
}

// binaryUnits maps the short units accepted on the command line to their
// binary meaning, matching how GIF sizes are usually quoted.
var binaryUnits = map[string]string{
	"":   "kib",
	"k":  "kib",
	"kb": "kib",
	"m":  "mib",
	"mb": "mib",
	"g":  "gib",
	"gb": "gib",
}

// ParseSize parses a size such as "512", "512K", "1.5M" or "2MiB" into bytes.
// A bare number is interpreted in KiB and every unit is a power of 1024.
func ParseSize(s string) (int64, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return 0, fmt.Errorf("empty size")
	}

	num, unit := str, ""
	if i := strings.IndexFunc(str, unicode.IsLetter); i >= 0 {
		num, unit = strings.TrimSpace(str[:i]), strings.ToLower(str[i:])
	}
	if u, ok := binaryUnits[unit]; ok {
		unit = u
	}

	n, err := humanize.ParseBytes(num + " " + unit)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n == 0 || n > math.MaxInt64 {
		return 0, fmt.Errorf("size out of range: %q", s)
	}
	return int64(n), nil
}

// ParseFraction parses an ffprobe rational such as "30000/1001".
func ParseFraction(s string) (float64, bool) {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	if !found {
		return n, true
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}
	return n / d, true
}

// CalculateSizeReduction returns the percentage reduction from input to
// output. Negative values mean the output grew.
func CalculateSizeReduction(inputSize, outputSize int64) float64 {
	if inputSize == 0 {
		return 0
	}
	return (float64(inputSize) - float64(outputSize)) / float64(inputSize) * 100
}
