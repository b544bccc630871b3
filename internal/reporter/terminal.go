package reporter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/gifsizer/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu        sync.Mutex
	out       io.Writer
	errOut    io.Writer
	progress  *progressbar.ProgressBar
	trials    int
	cyan      *color.Color
	green     *color.Color
	greenBold *color.Color
	yellow    *color.Color
	red       *color.Color
	magenta   *color.Color
	bold      *color.Color
	faint     *color.Color
}

// NewTerminalReporter creates a new terminal reporter.
func NewTerminalReporter() *TerminalReporter {
	return NewTerminalReporterWithWriters(os.Stdout, os.Stderr)
}

// NewTerminalReporterWithWriters creates a terminal reporter writing
// sections to out and errors and the trial bar to errOut.
func NewTerminalReporterWithWriters(out, errOut io.Writer) *TerminalReporter {
	return &TerminalReporter{
		out:       out,
		errOut:    errOut,
		cyan:      color.New(color.FgCyan, color.Bold),
		green:     color.New(color.FgGreen),
		greenBold: color.New(color.FgGreen, color.Bold),
		yellow:    color.New(color.FgYellow, color.Bold),
		red:       color.New(color.FgRed, color.Bold),
		magenta:   color.New(color.FgMagenta),
		bold:      color.New(color.Bold),
		faint:     color.New(color.Faint),
	}
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
	r.trials = 0
}

func (r *TerminalReporter) section(title string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, title)
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to ensure proper alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) Hardware(summary HardwareSummary) {
	r.section("HARDWARE")
	r.printLabel(10, "Hostname:", summary.Hostname)
	if summary.Cores > 0 {
		r.printLabel(10, "Cores:", fmt.Sprint(summary.Cores))
	}
}

func (r *TerminalReporter) Initialization(summary InitializationSummary) {
	r.section("SOURCE")
	r.printLabel(11, "File:", summary.InputFile)
	r.printLabel(11, "Output:", summary.OutputFile)
	if summary.Duration != "" {
		r.printLabel(11, "Duration:", summary.Duration)
	}
	if summary.Resolution != "" {
		r.printLabel(11, "Resolution:", summary.Resolution)
	}
	if summary.FrameRate > 0 {
		r.printLabel(11, "Frames:", fmt.Sprintf("%d at %.2f fps", summary.Frames, summary.FrameRate))
	}
	r.printLabel(11, "Size:", util.FormatBytes(summary.InputSize))
}

func (r *TerminalReporter) SearchConfig(summary SearchConfigSummary) {
	r.section("SEARCH")
	const w = 11
	r.printLabel(w, "Preset:", summary.Preset)
	r.printLabel(w, "Target:", summary.Target)
	r.printLabel(w, "Locked:", summary.Locks)
	r.printLabel(w, "Bounds:", summary.Bounds)
	r.printLabel(w, "Workers:", fmt.Sprint(summary.Workers))
	r.printLabel(w, "Batch:", fmt.Sprintf("%d per round, %d rounds max", summary.BatchSize, summary.MaxRounds))
	if summary.Scale > 0 {
		r.printLabel(w, "Scale:", fmt.Sprintf("%d%%", summary.Scale))
	}
	r.printLabel(w, "Loop:", summary.Loop)
}

func (r *TerminalReporter) SearchStarted(info SearchStartInfo) {
	r.finishProgress()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.progress = progressbar.NewOptions(
		info.MaxTrials,
		progressbar.OptionSetDescription(""),
		progressbar.OptionSetWidth(30),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(r.errOut),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowCount(),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "Trials [",
			BarEnd:        "]",
		}),
	)
}

func (r *TerminalReporter) RoundStarted(info RoundInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		r.progress.Describe(fmt.Sprintf("round %d, %d candidates", info.Round, len(info.Candidates)))
	}
}

func (r *TerminalReporter) TrialComplete(summary TrialSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trials++
	if r.progress == nil {
		return
	}
	// The bar max is an upper bound; a search may stop well before it.
	if r.trials <= r.progress.GetMax() {
		_ = r.progress.Set(r.trials)
	}

	var desc string
	switch {
	case summary.Error != "":
		desc = r.red.Sprintf("%s failed", summary.Params)
	case summary.Fits:
		desc = r.green.Sprintf("%s %s", summary.Params, util.FormatBytes(summary.Size))
	default:
		desc = fmt.Sprintf("%s %s", summary.Params, util.FormatBytes(summary.Size))
	}
	r.progress.Describe(desc)
}

func (r *TerminalReporter) SearchComplete(outcome SearchOutcome) {
	r.finishProgress()

	r.section("RESULTS")
	var state string
	switch outcome.State {
	case "converged":
		state = r.greenBold.Sprint(outcome.State)
	case "exhausted":
		state = r.yellow.Sprint(outcome.State)
	default:
		state = r.red.Sprint(outcome.State)
	}
	r.printLabel(9, "State:", state)
	if outcome.Params == "" {
		r.printLabel(9, "Output:", r.faint.Sprint("none"))
	} else {
		r.printLabel(9, "Params:", outcome.Params)
		reduction := util.CalculateSizeReduction(outcome.InputSize, outcome.OutputSize)
		r.printLabel(9, "Size:", fmt.Sprintf("%s -> %s (%.1f%% reduction)",
			util.FormatBytes(outcome.InputSize), util.FormatBytes(outcome.OutputSize), reduction))
	}
	if outcome.Target > 0 {
		r.printLabel(9, "Target:", util.FormatBytes(outcome.Target))
	}
	trials := fmt.Sprintf("%d in %d rounds", outcome.Trials, outcome.Rounds)
	if outcome.Failures > 0 {
		trials += r.red.Sprintf(", %d failed", outcome.Failures)
	}
	r.printLabel(9, "Trials:", trials)
	r.printLabel(9, "Time:", util.FormatDuration(outcome.TotalTime))
	if outcome.OutputPath != "" {
		_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint("Saved to"), r.green.Sprint(outcome.OutputPath))
	}
}

func (r *TerminalReporter) ValidationComplete(summary ValidationSummary) {
	r.section("VALIDATION")

	if summary.Passed {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.greenBold.Sprint("All checks passed"))
	} else {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.red.Sprint("Validation failed"))
	}

	maxLen := 0
	for _, step := range summary.Steps {
		maxLen = max(maxLen, len(step.Name))
	}

	for _, step := range summary.Steps {
		status := r.green.Sprint("✓")
		if !step.Passed {
			status = r.red.Sprint("✗")
		}
		_, _ = fmt.Fprintf(r.out, "  - %-*s: %s (%s)\n", maxLen, step.Name, status, step.Details)
	}
}

func (r *TerminalReporter) Warning(message string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = r.yellow.Fprintf(r.out, "WARN: %s\n", message)
}

func (r *TerminalReporter) Error(err ReporterError) {
	_, _ = fmt.Fprintln(r.errOut)
	_, _ = r.red.Fprintf(r.errOut, "ERROR %s\n", err.Title)
	_, _ = fmt.Fprintf(r.errOut, "  %s\n", err.Message)
	if err.Context != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Context: %s\n", err.Context)
	}
	if err.Suggestion != "" {
		_, _ = fmt.Fprintf(r.errOut, "  Suggestion: %s\n", err.Suggestion)
	}
}

func (r *TerminalReporter) OperationComplete(message string) {
	_, _ = fmt.Fprintln(r.out)
	_, _ = fmt.Fprintf(r.out, "%s %s\n", r.greenBold.Sprint("✓"), r.bold.Sprint(message))
}

func (r *TerminalReporter) BatchStarted(info BatchStartInfo) {
	r.section("BATCH")
	_, _ = fmt.Fprintf(r.out, "  Processing %d files -> %s\n", info.TotalFiles, r.bold.Sprint(info.OutputDir))
	for i, name := range info.FileList {
		_, _ = fmt.Fprintf(r.out, "  %d. %s\n", i+1, name)
	}
}

func (r *TerminalReporter) FileProgress(context FileProgressContext) {
	_, _ = fmt.Fprintf(r.out, "\nFile %s of %d\n", r.bold.Sprint(context.CurrentFile), context.TotalFiles)
}

func (r *TerminalReporter) BatchComplete(summary BatchSummary) {
	reduction := util.CalculateSizeReduction(summary.TotalInputSize, summary.TotalOutputSize)

	r.section("BATCH SUMMARY")
	_, _ = fmt.Fprintf(r.out, "  %s\n", r.bold.Sprintf("%d of %d succeeded", summary.SuccessfulCount, summary.TotalFiles))
	if summary.ExhaustedCount > 0 {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.yellow.Sprintf("%d did not reach the target", summary.ExhaustedCount))
	}
	if summary.ValidationFailedCount > 0 {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.red.Sprintf("%d failed validation", summary.ValidationFailedCount))
	}
	_, _ = fmt.Fprintf(r.out, "  Size: %s -> %s (%.1f%% reduction)\n",
		util.FormatBytes(summary.TotalInputSize), util.FormatBytes(summary.TotalOutputSize), reduction)
	_, _ = fmt.Fprintf(r.out, "  Trials: %d\n", summary.TotalTrials)
	_, _ = fmt.Fprintf(r.out, "  Time: %s\n", util.FormatDuration(summary.TotalDuration))

	for _, result := range summary.FileResults {
		_, _ = fmt.Fprintf(r.out, "  - %s (%s, %s)\n", result.Filename, result.State, util.FormatBytes(result.Size))
	}
}

func (r *TerminalReporter) Verbose(message string) {
	_, _ = fmt.Fprintf(r.out, "  %s %s\n", r.magenta.Sprint("›"), strings.TrimSpace(message))
}
