// File: internal/results/summary.go
package results

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/json-iterator/go"
)

// Summary is the machine readable record of a run written for build hosts.
type Summary struct {
	Outcome           string  `json:"outcome"`
	Message           string  `json:"message,omitempty"`
	Skipped           bool    `json:"skipped,omitempty"`
	BugCount          int     `json:"bug_count"`
	MissingClassCount int     `json:"missing_class_count"`
	ErrorCount        int     `json:"error_count"`
	ExitCode          int     `json:"exit_code"`
	DurationSeconds   float64 `json:"duration_seconds"`
	Error             string  `json:"error,omitempty"`
}

// NewSummary flattens a result and its outcome. result may be nil when no
// worker ran.
func NewSummary(result *Result, outcome Outcome) Summary {
	s := Summary{
		Outcome: outcome.Kind.String(),
		Message: outcome.Message,
		Skipped: outcome.Skipped,
	}
	if outcome.Cause != nil {
		s.Error = outcome.Cause.Error()
	}
	if result != nil {
		s.BugCount = result.BugCount
		s.MissingClassCount = result.MissingClassCount
		s.ErrorCount = result.ErrorCount
		s.ExitCode = result.ExitCode
		s.DurationSeconds = result.Duration.Seconds()
	}
	return s
}

// WriteSummary writes the summary as indented JSON, creating parent directories.
func WriteSummary(path string, result *Result, outcome Outcome) error {
	data, err := json.MarshalIndent(NewSummary(result, outcome), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for run summary: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write run summary to %s: %w", path, err)
	}
	return nil
}
