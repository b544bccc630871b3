package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// stderr receives a copy of every record in verbose mode.
var stderr io.Writer = os.Stderr

// RunLog is the CLI's per-run log file. A nil *RunLog is valid and discards
// everything.
type RunLog struct {
	file     *os.File
	filePath string
}

// Setup creates gifsizer_run_YYYYMMDD_HHMMSS.log in logDir and routes the
// global logger to it, and also to stderr when verbose. Returns nil when
// noLog is set.
func Setup(logDir string, verbose, noLog bool) (*RunLog, error) {
	if noLog {
		return nil, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	filename := fmt.Sprintf("gifsizer_run_%s.log", time.Now().Format("20060102_150405"))
	filePath := filepath.Join(logDir, filename)

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", filePath, err)
	}

	level := LevelInfo
	if verbose {
		level = LevelDebug
	}

	r := &RunLog{file: file, filePath: filePath}
	var out io.Writer = file
	if verbose {
		out = io.MultiWriter(file, stderr)
	}
	Init(level, out)

	Info("gifsizer starting", "log_file", filePath, "debug", verbose)
	return r, nil
}

// Close restores the default global logger and closes the file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	SetGlobal(New(DefaultConfig()))
	return r.file.Close()
}

// FilePath returns the path to the log file.
func (r *RunLog) FilePath() string {
	if r == nil {
		return ""
	}
	return r.filePath
}
