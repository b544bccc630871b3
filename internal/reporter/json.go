package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/five82/gifsizer/internal/util"
)

// JSONReporter outputs one JSON event per line.
type JSONReporter struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONReporter creates a new JSON reporter that writes to stdout.
func NewJSONReporter() *JSONReporter {
	return &JSONReporter{writer: os.Stdout}
}

// NewJSONReporterWithWriter creates a JSON reporter with a custom writer.
func NewJSONReporterWithWriter(w io.Writer) *JSONReporter {
	return &JSONReporter{writer: w}
}

func (r *JSONReporter) timestamp() int64 {
	return time.Now().Unix()
}

func (r *JSONReporter) write(v map[string]interface{}) {
	v["timestamp"] = r.timestamp()

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintln(r.writer, string(data))
}

func (r *JSONReporter) Hardware(summary HardwareSummary) {
	r.write(map[string]interface{}{
		"type":     "hardware",
		"hostname": summary.Hostname,
		"cores":    summary.Cores,
	})
}

func (r *JSONReporter) Initialization(summary InitializationSummary) {
	r.write(map[string]interface{}{
		"type":        "initialization",
		"input_file":  summary.InputFile,
		"output_file": summary.OutputFile,
		"duration":    summary.Duration,
		"resolution":  summary.Resolution,
		"frame_rate":  summary.FrameRate,
		"frames":      summary.Frames,
		"input_size":  summary.InputSize,
	})
}

func (r *JSONReporter) SearchConfig(summary SearchConfigSummary) {
	r.write(map[string]interface{}{
		"type":       "search_config",
		"preset":     summary.Preset,
		"target":     summary.Target,
		"locks":      summary.Locks,
		"bounds":     summary.Bounds,
		"workers":    summary.Workers,
		"batch_size": summary.BatchSize,
		"max_rounds": summary.MaxRounds,
		"scale":      summary.Scale,
		"loop":       summary.Loop,
	})
}

func (r *JSONReporter) SearchStarted(info SearchStartInfo) {
	r.write(map[string]interface{}{
		"type":       "search_started",
		"session_id": info.SessionID,
		"space_size": info.SpaceSize,
		"max_trials": info.MaxTrials,
	})
}

func (r *JSONReporter) RoundStarted(info RoundInfo) {
	r.write(map[string]interface{}{
		"type":       "round_started",
		"round":      info.Round,
		"candidates": info.Candidates,
	})
}

func (r *JSONReporter) TrialComplete(summary TrialSummary) {
	event := map[string]interface{}{
		"type":       "trial_complete",
		"seq":        summary.Seq,
		"params":     summary.Params,
		"size":       summary.Size,
		"fits":       summary.Fits,
		"elapsed_ms": summary.Elapsed.Milliseconds(),
	}
	if summary.Error != "" {
		event["error"] = summary.Error
	}
	r.write(event)
}

func (r *JSONReporter) SearchComplete(outcome SearchOutcome) {
	r.write(map[string]interface{}{
		"type":                   "search_complete",
		"input_file":             outcome.InputFile,
		"output_path":            outcome.OutputPath,
		"state":                  outcome.State,
		"params":                 outcome.Params,
		"input_size":             outcome.InputSize,
		"output_size":            outcome.OutputSize,
		"target":                 outcome.Target,
		"trials":                 outcome.Trials,
		"rounds":                 outcome.Rounds,
		"failures":               outcome.Failures,
		"duration_seconds":       int64(outcome.TotalTime.Seconds()),
		"size_reduction_percent": util.CalculateSizeReduction(outcome.InputSize, outcome.OutputSize),
	})
}

func (r *JSONReporter) ValidationComplete(summary ValidationSummary) {
	steps := make([]map[string]interface{}, len(summary.Steps))
	for i, step := range summary.Steps {
		steps[i] = map[string]interface{}{
			"step":    step.Name,
			"passed":  step.Passed,
			"details": step.Details,
		}
	}
	r.write(map[string]interface{}{
		"type":   "validation_complete",
		"passed": summary.Passed,
		"steps":  steps,
	})
}

func (r *JSONReporter) Warning(message string) {
	r.write(map[string]interface{}{
		"type":    "warning",
		"message": message,
	})
}

func (r *JSONReporter) Error(err ReporterError) {
	r.write(map[string]interface{}{
		"type":       "error",
		"title":      err.Title,
		"message":    err.Message,
		"context":    err.Context,
		"suggestion": err.Suggestion,
	})
}

func (r *JSONReporter) OperationComplete(message string) {
	r.write(map[string]interface{}{
		"type":    "operation_complete",
		"message": message,
	})
}

func (r *JSONReporter) BatchStarted(info BatchStartInfo) {
	r.write(map[string]interface{}{
		"type":        "batch_started",
		"total_files": info.TotalFiles,
		"file_list":   info.FileList,
		"output_dir":  info.OutputDir,
	})
}

func (r *JSONReporter) FileProgress(context FileProgressContext) {
	r.write(map[string]interface{}{
		"type":         "file_progress",
		"current_file": context.CurrentFile,
		"total_files":  context.TotalFiles,
	})
}

func (r *JSONReporter) BatchComplete(summary BatchSummary) {
	r.write(map[string]interface{}{
		"type":                         "batch_complete",
		"successful_count":             summary.SuccessfulCount,
		"exhausted_count":              summary.ExhaustedCount,
		"total_files":                  summary.TotalFiles,
		"total_input_size":             summary.TotalInputSize,
		"total_output_size":            summary.TotalOutputSize,
		"total_trials":                 summary.TotalTrials,
		"validation_failed_count":      summary.ValidationFailedCount,
		"total_duration_seconds":       int64(summary.TotalDuration.Seconds()),
		"total_size_reduction_percent": util.CalculateSizeReduction(summary.TotalInputSize, summary.TotalOutputSize),
	})
}

func (r *JSONReporter) Verbose(message string) {
	r.write(map[string]interface{}{
		"type":    "verbose",
		"message": message,
	})
}
