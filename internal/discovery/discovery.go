// Package discovery finds convertible sources in a directory.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gerrors "github.com/five82/gifsizer/internal/errors"
	"github.com/five82/gifsizer/internal/logging"
	"github.com/five82/gifsizer/internal/util"
)

// Result contains the discovered sources with metadata.
type Result struct {
	Files []string
	// SkippedCount counts regular files that are not sources.
	SkippedCount int
	// OutputCount counts previous outputs that were left alone.
	OutputCount int
}

// FindSourceFiles finds convertible sources in inputDir, sorted
// case-insensitively by filename. Files ending in outputSuffix+".gif" are
// treated as earlier results and skipped.
func FindSourceFiles(inputDir, outputSuffix string) (*Result, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, gerrors.NewPathError(fmt.Sprintf("directory does not exist: %s", inputDir))
	}
	if !info.IsDir() {
		return nil, gerrors.NewPathError(fmt.Sprintf("%s is not a directory", inputDir))
	}

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, gerrors.NewIOError(fmt.Sprintf("cannot read directory %s", inputDir), err)
	}

	result := &Result{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Skip hidden files
		if strings.HasPrefix(name, ".") {
			continue
		}

		if outputSuffix != "" && strings.HasSuffix(strings.ToLower(name), strings.ToLower(outputSuffix)+".gif") {
			result.OutputCount++
			continue
		}

		fullPath := filepath.Join(inputDir, name)
		if util.IsSourceFile(fullPath) {
			result.Files = append(result.Files, fullPath)
		} else {
			result.SkippedCount++
		}
	}

	if len(result.Files) == 0 {
		return nil, gerrors.NewNoFilesFoundError(inputDir)
	}

	sort.Slice(result.Files, func(i, j int) bool {
		return strings.ToLower(filepath.Base(result.Files[i])) < strings.ToLower(filepath.Base(result.Files[j]))
	})

	logDiscoveredFiles(result)
	return result, nil
}

// logDiscoveredFiles logs the first 5 discovered files plus a count.
func logDiscoveredFiles(result *Result) {
	files := result.Files
	logging.Info("Found source files", "count", len(files), "skipped", result.SkippedCount, "previous_outputs", result.OutputCount)

	for i := range min(5, len(files)) {
		logging.Debug("Discovered source", "file", filepath.Base(files[i]))
	}
	if len(files) > 5 {
		logging.Debug("More sources not listed", "remaining", len(files)-5)
	}
}
