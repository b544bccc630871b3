package reporter

// Reporter defines the interface for progress reporting.
type Reporter interface {
	Hardware(summary HardwareSummary)
	Initialization(summary InitializationSummary)
	SearchConfig(summary SearchConfigSummary)
	SearchStarted(info SearchStartInfo)
	RoundStarted(info RoundInfo)
	TrialComplete(summary TrialSummary)
	SearchComplete(outcome SearchOutcome)
	ValidationComplete(summary ValidationSummary)
	Warning(message string)
	Error(err ReporterError)
	OperationComplete(message string)
	BatchStarted(info BatchStartInfo)
	FileProgress(context FileProgressContext)
	BatchComplete(summary BatchSummary)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) Hardware(HardwareSummary) {}
func (NullReporter) Initialization(InitializationSummary) {}
func (NullReporter) SearchConfig(SearchConfigSummary) {}
func (NullReporter) SearchStarted(SearchStartInfo) {}
func (NullReporter) RoundStarted(RoundInfo) {}
func (NullReporter) TrialComplete(TrialSummary) {}
func (NullReporter) SearchComplete(SearchOutcome) {}
func (NullReporter) ValidationComplete(ValidationSummary) {}
func (NullReporter) Warning(string) {}
func (NullReporter) Error(ReporterError) {}
func (NullReporter) OperationComplete(string) {}
func (NullReporter) BatchStarted(BatchStartInfo) {}
func (NullReporter) FileProgress(FileProgressContext) {}
func (NullReporter) BatchComplete(BatchSummary) {}
func (NullReporter) Verbose(string) {}
