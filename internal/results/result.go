// File: internal/results/result.go
// Description: What one worker run produced, and the verdict drawn from it.

package results

import (
	"time"

	"github.com/xkilldash9x/spotbugs-runner/internal/failures"
)

// Result is the raw outcome of exactly one worker invocation. A worker that
// crashed still produces a Result; the crash is recorded in Err.
type Result struct {
	BugCount          int
	MissingClassCount int
	ErrorCount        int
	// Err is set when the worker itself failed, as opposed to finding bugs.
	Err      error
	ExitCode int
	Duration time.Duration
}

// Kind is the final classification of a run.
type Kind int

const (
	Clean Kind = iota
	Warned
	Failed
)

func (k Kind) String() string {
	switch k {
	case Clean:
		return "clean"
	case Warned:
		return "warned"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the verdict handed back to the host.
type Outcome struct {
	Kind    Kind
	Message string
	Cause   error
	// Skipped is set when there was nothing to analyze and no worker ran.
	Skipped bool
	// kind is the failure kind Err reports; engine failures when unset.
	kind error
}

// Err converts a failed outcome into a *failures.Failure and returns nil otherwise.
func (o Outcome) Err() error {
	if o.Kind != Failed {
		return nil
	}
	kind := o.kind
	if kind == nil {
		kind = failures.ErrWorkerInfrastructure
	}
	return failures.New(kind, o.Message, o.Cause)
}

// FailedWith builds a failed outcome out of an error raised before or around
// the worker (classpath, configuration, interruption).
func FailedWith(err error) Outcome {
	f := failures.As(err)
	return Outcome{Kind: Failed, Message: f.Msg, Cause: f.Cause, kind: f.Kind}
}
