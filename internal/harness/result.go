package harness

import (
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of one job's confined invocation
type Result struct {
	// ID uniquely identifies this invocation
	ID string

	// Job is the configured job name
	Job string

	// Worker is the diagnostic name of the worker thread that ran the job
	Worker string

	// Steps is how many steps completed before the job finished
	Steps int

	// Err is the propagated failure, nil on success
	Err error

	// Duration covers the whole invocation, including loop drain and join
	Duration time.Duration
}

// CountSuccessful returns the number of successful results (no error)
func CountSuccessful(results []Result) int {
	count := 0
	for _, r := range results {
		if r.Err == nil {
			count++
		}
	}
	return count
}

// CountFailed returns the number of failed results (has error)
func CountFailed(results []Result) int {
	count := 0
	for _, r := range results {
		if r.Err != nil {
			count++
		}
	}
	return count
}

// FilterFailed returns only the failed results
func FilterFailed(results []Result) []Result {
	filtered := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Errors extracts all errors from failed results
func Errors(results []Result) []error {
	errs := make([]error, 0)
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errs
}

// HasErrors returns true if any results contain errors
func HasErrors(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return true
		}
	}
	return false
}

// SuccessRate returns the success rate as a percentage (0.0 to 100.0)
func SuccessRate(results []Result) float64 {
	if len(results) == 0 {
		return 0.0
	}
	return float64(CountSuccessful(results)) / float64(len(results)) * 100.0
}

// Summary provides a summary of a run
type Summary struct {
	Total       int
	Successful  int
	Failed      int
	TotalSteps  int
	AvgDuration time.Duration
	MaxDuration time.Duration
}

// Summarize creates a summary of the results
func Summarize(results []Result) Summary {
	s := Summary{
		Total:      len(results),
		Successful: CountSuccessful(results),
		Failed:     CountFailed(results),
	}

	var total time.Duration
	for _, r := range results {
		s.TotalSteps += r.Steps
		total += r.Duration
		if r.Duration > s.MaxDuration {
			s.MaxDuration = r.Duration
		}
	}
	if len(results) > 0 {
		s.AvgDuration = total / time.Duration(len(results))
	}

	return s
}

// String returns a human-readable string representation of the summary
func (s Summary) String() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d, ", s.Total))
	sb.WriteString(fmt.Sprintf("Successful: %d, ", s.Successful))
	sb.WriteString(fmt.Sprintf("Failed: %d", s.Failed))

	if s.Total > 0 {
		sb.WriteString(fmt.Sprintf(", Steps: %d", s.TotalSteps))
		sb.WriteString(fmt.Sprintf(", Avg: %s", s.AvgDuration.Round(time.Millisecond)))
		sb.WriteString(fmt.Sprintf(", Max: %s", s.MaxDuration.Round(time.Millisecond)))
	}

	return sb.String()
}
