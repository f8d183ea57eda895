// File: cmd/pipeline.go
// Description: Turns the loaded configuration into the collaborators of one run.

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/spotbugs-runner/internal/classpath"
	"github.com/xkilldash9x/spotbugs-runner/internal/config"
	"github.com/xkilldash9x/spotbugs-runner/internal/observability"
	"github.com/xkilldash9x/spotbugs-runner/internal/orchestrator"
	"github.com/xkilldash9x/spotbugs-runner/internal/spec"
	"github.com/xkilldash9x/spotbugs-runner/internal/task"
	"github.com/xkilldash9x/spotbugs-runner/internal/worker"
)

// Factories are variables so tests can substitute the worker and the platform probe.
var (
	detectPlatform = classpath.DetectPlatform
	newWorker      = func(logger *zap.Logger, opts ...worker.Option) orchestrator.WorkerRunner {
		return worker.NewManager(logger, opts...)
	}
)

// runEnv is everything a command needs to analyze or describe one task.
type runEnv struct {
	logger     *zap.Logger
	model      *task.Model
	workingDir string
	engine     config.EngineConfig
	taskCfg    config.TaskConfig
}

func loadRunEnv(cfg config.Interface) (*runEnv, error) {
	eng := cfg.Engine()
	workingDir, err := absDir(eng.WorkingDir)
	if err != nil {
		return nil, err
	}

	scratch := eng.ScratchDir
	if scratch == "" {
		scratch = filepath.Join(os.TempDir(), "spotbugs-runner")
	}
	scratch, err = homedir.Expand(scratch)
	if err != nil {
		return nil, fmt.Errorf("invalid scratch directory: %w", err)
	}

	taskCfg := cfg.Task()
	model, err := taskCfg.ToModel(scratch)
	if err != nil {
		return nil, err
	}

	return &runEnv{
		logger:     observability.GetLogger(),
		model:      model,
		workingDir: workingDir,
		engine:     eng,
		taskCfg:    taskCfg,
	}, nil
}

func absDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", fmt.Errorf("invalid working directory %q: %w", dir, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("invalid working directory %q: %w", dir, err)
	}
	return abs, nil
}

// platform resolves the Java version the worker will run on. A pinned
// version in the configuration wins over detection.
func (e *runEnv) platform(ctx context.Context) (classpath.Platform, error) {
	if e.engine.PlatformVersion != "" {
		return classpath.ParsePlatform(e.engine.PlatformVersion)
	}
	return detectPlatform(ctx, e.engine.JavaHome, e.engine.JavaExecutable)
}

func (e *runEnv) workerOptions() []worker.Option {
	return []worker.Option{
		worker.WithJavaExecutable(worker.JavaExecutable(e.engine.JavaExecutable, e.engine.JavaHome)),
		worker.WithMainClass(e.engine.MainClass),
		worker.WithKillGrace(e.engine.KillGrace),
	}
}

func (e *runEnv) specOptions() spec.Options {
	return spec.Options{Debug: observability.DebugEnabled(e.logger), BaseDir: e.workingDir}
}

func (e *runEnv) newOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, error) {
	validator := classpath.NewLazyValidator(func() (classpath.Platform, error) {
		return e.platform(ctx)
	})
	opts := e.specOptions()
	return orchestrator.New(validator, newWorker(e.logger, e.workerOptions()...), e.logger, orchestrator.Options{
		WorkingDir:  e.workingDir,
		Debug:       opts.Debug,
		BaseDir:     opts.BaseDir,
		SummaryFile: e.taskCfg.SummaryFile,
	})
}
