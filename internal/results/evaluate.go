// File: internal/results/evaluate.go
package results

import (
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/xkilldash9x/spotbugs-runner/internal/failures"
	"github.com/xkilldash9x/spotbugs-runner/internal/task"
)

// EngineErrorMessage is shown whenever the engine itself could not finish cleanly.
const EngineErrorMessage = "SpotBugs encountered an error. Run with --debug to get more information."

// Evaluate classifies a worker result. Engine errors always fail the run;
// ignoreFailures only softens rule violations into a warning.
func Evaluate(result *Result, reports *task.Reports, ignoreFailures bool) Outcome {
	if result == nil {
		return Outcome{Kind: Failed, Message: EngineErrorMessage}
	}
	if result.Err != nil {
		return Outcome{Kind: Failed, Message: EngineErrorMessage, Cause: result.Err}
	}
	if result.ErrorCount > 0 {
		return Outcome{Kind: Failed, Message: EngineErrorMessage}
	}
	if result.BugCount > 0 {
		msg := fmt.Sprintf("SpotBugs rule violations were found. %d bug(s) reported.", result.BugCount)
		if first := reports.FirstEnabled(); first != nil && first.Destination != "" {
			msg += " See the report at: " + ClickableFileURL(first.Destination)
		}
		if ignoreFailures {
			return Outcome{Kind: Warned, Message: msg}
		}
		return Outcome{Kind: Failed, Message: msg, kind: failures.ErrFindingsPresent}
	}
	return Outcome{Kind: Clean}
}

// ClickableFileURL renders path as a file:// URL that terminals recognize.
func ClickableFileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	p := filepath.ToSlash(abs)
	if len(p) > 0 && p[0] != '/' {
		// Windows drive letters.
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}
