// Package reporter provides progress reporting interfaces and implementations.
package reporter

import "time"

// HardwareSummary contains hardware information.
type HardwareSummary struct {
	Hostname string
	Cores    int
}

// InitializationSummary describes the current source before the search.
type InitializationSummary struct {
	InputFile  string
	OutputFile string
	Duration   string
	Resolution string
	FrameRate  float64
	Frames     int
	InputSize  int64
}

// SearchConfigSummary contains the session options.
type SearchConfigSummary struct {
	Preset    string
	Target    string
	Locks     string
	Bounds    string
	Workers   int
	BatchSize int
	MaxRounds int
	Scale     int
	Loop      string
}

// SearchStartInfo is emitted when a session begins.
type SearchStartInfo struct {
	SessionID string
	SpaceSize int
	MaxTrials int
}

// RoundInfo describes a dispatched batch.
type RoundInfo struct {
	Round      int
	Candidates []string
}

// TrialSummary contains one finished trial.
type TrialSummary struct {
	Seq     int
	Params  string
	Size    int64
	Fits    bool
	Elapsed time.Duration
	Error   string
}

// SearchOutcome contains the final search result for one source.
type SearchOutcome struct {
	InputFile  string
	OutputPath string
	State      string
	Params     string
	InputSize  int64
	OutputSize int64
	Target     int64
	Trials     int
	Rounds     int
	Failures   int
	TotalTime  time.Duration
}

// ValidationSummary contains output validation results.
type ValidationSummary struct {
	Passed bool
	Steps  []ValidationStep
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// ReporterError contains error information.
type ReporterError struct {
	Title      string
	Message    string
	Context    string
	Suggestion string
}

// BatchStartInfo contains batch start metadata.
type BatchStartInfo struct {
	TotalFiles int
	FileList   []string
	OutputDir  string
}

// FileProgressContext contains current file index within a batch.
type FileProgressContext struct {
	CurrentFile int
	TotalFiles  int
}

// BatchSummary contains batch completion information.
type BatchSummary struct {
	SuccessfulCount       int
	TotalFiles            int
	TotalInputSize        int64
	TotalOutputSize       int64
	TotalDuration         time.Duration
	FileResults           []FileResult
	ExhaustedCount        int
	TotalTrials           int
	ValidationFailedCount int
}

// FileResult contains per-file result.
type FileResult struct {
	Filename string
	State    string
	Size     int64
}
