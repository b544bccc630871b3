package validation

import "fmt"

// Result contains the overall validation result.
type Result struct {
	IsGIF              bool
	IsDimensionCorrect bool
	IsDurationCorrect  bool
	IsSizeCorrect      bool

	// Details
	CodecName          string
	ActualDimensions   *[2]int
	ExpectedDimensions *[2]int
	DimensionMessage   string
	ActualDuration     *float64
	ExpectedDuration   *float64
	DurationMessage    string
	ActualSize         int64
	SizeMessage        string
}

// ValidationStep represents a single validation check.
type ValidationStep struct {
	Name    string
	Passed  bool
	Details string
}

// IsValid returns true if all validation checks passed.
func (r *Result) IsValid() bool {
	return r.IsGIF &&
		r.IsDimensionCorrect &&
		r.IsDurationCorrect &&
		r.IsSizeCorrect
}

// GetValidationSteps returns all validation steps with results.
func (r *Result) GetValidationSteps() []ValidationStep {
	return []ValidationStep{
		{
			Name:    "Format",
			Passed:  r.IsGIF,
			Details: formatCodecDetails(r.CodecName, r.IsGIF),
		},
		{
			Name:    "Dimensions",
			Passed:  r.IsDimensionCorrect,
			Details: r.DimensionMessage,
		},
		{
			Name:    "Duration",
			Passed:  r.IsDurationCorrect,
			Details: r.DurationMessage,
		},
		{
			Name:    "File size",
			Passed:  r.IsSizeCorrect,
			Details: r.SizeMessage,
		},
	}
}

// GetFailures returns descriptions of failed validation checks.
func (r *Result) GetFailures() []string {
	var failures []string
	for _, step := range r.GetValidationSteps() {
		if !step.Passed {
			failures = append(failures, step.Name+": "+step.Details)
		}
	}
	return failures
}

func formatCodecDetails(codecName string, passed bool) string {
	if passed {
		return "GIF"
	}
	if codecName != "" {
		return fmt.Sprintf("Expected GIF, got %s", codecName)
	}
	return "Unknown format"
}
