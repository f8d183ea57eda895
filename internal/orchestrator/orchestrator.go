// File: internal/orchestrator/orchestrator.go
// Description: Runs one analysis end to end: classpath gate, specification,
// worker, verdict. Every collaborator is injected so each stage can be faked.

package orchestrator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/spotbugs-runner/internal/failures"
	"github.com/xkilldash9x/spotbugs-runner/internal/results"
	"github.com/xkilldash9x/spotbugs-runner/internal/spec"
	"github.com/xkilldash9x/spotbugs-runner/internal/task"
)

// Validator checks that the engine on the classpath can run on this platform.
type Validator interface {
	Validate(fileNames []string) error
}

// WorkerRunner executes one analysis in an isolated worker.
type WorkerRunner interface {
	Run(ctx context.Context, workingDir string, workerClasspath []string, s *spec.Spec) (*results.Result, error)
}

// Options are run scoped settings that do not belong in the task model.
type Options struct {
	WorkingDir string
	// Debug is derived from the logger level by the caller.
	Debug   bool
	BaseDir string
	// SummaryFile, when set, receives a JSON record of every run.
	SummaryFile string
}

// Orchestrator drives a single analysis task.
type Orchestrator struct {
	validator Validator
	worker    WorkerRunner
	logger    *zap.Logger
	opts      Options
}

// New creates an Orchestrator. All dependencies are required.
func New(validator Validator, worker WorkerRunner, logger *zap.Logger, opts Options) (*Orchestrator, error) {
	if validator == nil || worker == nil || logger == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	return &Orchestrator{
		validator: validator,
		worker:    worker,
		logger:    logger.Named("orchestrator"),
		opts:      opts,
	}, nil
}

// Run analyzes model and returns the verdict. The error is non nil exactly when
// the outcome is Failed, and is always a *failures.Failure.
func (o *Orchestrator) Run(ctx context.Context, model *task.Model) (results.Outcome, error) {
	if !model.HasClasses() {
		o.logger.Info("NO-SOURCE: no classes to analyze, skipping SpotBugs")
		outcome := results.Outcome{Kind: results.Clean, Skipped: true}
		o.writeSummary(nil, outcome)
		return outcome, nil
	}

	if err := ctx.Err(); err != nil {
		return o.fail(interrupted(err))
	}
	if err := o.validator.Validate(model.SpotbugsClasspath); err != nil {
		// Detection may have been cut short by the cancellation itself.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return o.fail(interrupted(ctxErr))
		}
		return o.fail(err)
	}

	s, err := spec.Build(model, spec.Options{Debug: o.opts.Debug, BaseDir: o.opts.BaseDir})
	if err != nil {
		return o.fail(err)
	}
	for _, w := range s.Warnings() {
		o.logger.Warn(w)
	}

	o.logger.Info("Running SpotBugs",
		zap.Int("classes", len(s.Classes())),
		zap.String("effort", s.Effort()),
		zap.String("report_level", s.ReportLevel()),
	)

	res, err := o.worker.Run(ctx, o.opts.WorkingDir, model.SpotbugsClasspath, s)
	if err != nil {
		return o.fail(err)
	}

	outcome := results.Evaluate(res, s.ReportSinks(), model.IgnoreFailures)
	o.writeSummary(res, outcome)

	switch outcome.Kind {
	case results.Warned:
		o.logger.Warn(outcome.Message)
	case results.Failed:
		o.logger.Error(outcome.Message, zap.Error(outcome.Cause))
		return outcome, outcome.Err()
	default:
		o.logger.Info("SpotBugs found no problems")
	}
	return outcome, nil
}

func interrupted(cause error) error {
	return failures.New(failures.ErrInterrupted, "SpotBugs analysis was interrupted", cause)
}

func (o *Orchestrator) fail(err error) (results.Outcome, error) {
	outcome := results.FailedWith(err)
	o.logger.Error("SpotBugs analysis failed", zap.Error(err))
	o.writeSummary(nil, outcome)
	return outcome, outcome.Err()
}

func (o *Orchestrator) writeSummary(res *results.Result, outcome results.Outcome) {
	if o.opts.SummaryFile == "" {
		return
	}
	if err := results.WriteSummary(o.opts.SummaryFile, res, outcome); err != nil {
		o.logger.Warn("Failed to write run summary", zap.Error(err))
	}
}
