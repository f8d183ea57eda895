// File: internal/worker/manager.go
// Description: Launches the SpotBugs engine in a separate JVM, supervises it,
// and turns whatever happened into a results.Result.

package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/spotbugs-runner/internal/failures"
	"github.com/xkilldash9x/spotbugs-runner/internal/results"
	"github.com/xkilldash9x/spotbugs-runner/internal/spec"
)

// DefaultMainClass is the engine entry point that understands -exitcode.
const DefaultMainClass = "edu.umd.cs.findbugs.FindBugs2"

const (
	stderrTailLines = 20
	maxLineBytes    = 1 << 20
)

// Variables the worker must never inherit: both can silently change what the
// JVM loads.
var strippedEnv = []string{"CLASSPATH", "JAVA_TOOL_OPTIONS"}

// CommandFactory builds the worker command. It exists so tests can put a fake
// JVM in place of the real one.
type CommandFactory func(name string, args ...string) *exec.Cmd

// Manager runs exactly one worker per Run call. It holds no state between runs.
type Manager struct {
	logger     *zap.Logger
	java       string
	mainClass  string
	newCommand CommandFactory
	onStart    func(pid int)
	killGrace  time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithJavaExecutable sets the java binary used to start the worker.
func WithJavaExecutable(path string) Option {
	return func(m *Manager) {
		if path != "" {
			m.java = path
		}
	}
}

// WithMainClass overrides the engine entry point.
func WithMainClass(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.mainClass = name
		}
	}
}

// WithCommandFactory replaces exec.Command.
func WithCommandFactory(f CommandFactory) Option {
	return func(m *Manager) {
		if f != nil {
			m.newCommand = f
		}
	}
}

// WithStartHook is called with the worker pid right after it started.
func WithStartHook(fn func(pid int)) Option {
	return func(m *Manager) { m.onStart = fn }
}

// WithKillGrace makes cancellation send SIGTERM first and wait up to d before
// SIGKILL. Zero kills immediately.
func WithKillGrace(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.killGrace = d
		}
	}
}

// NewManager creates a worker manager.
func NewManager(logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		logger:     logger.With(zap.String("component", "worker")),
		java:       "java",
		mainClass:  DefaultMainClass,
		newCommand: exec.Command,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// JavaExecutable picks the java binary: an explicit path wins, then the one
// under javaHome, then whatever "java" resolves to on PATH.
func JavaExecutable(explicit, javaHome string) string {
	switch {
	case explicit != "":
		return explicit
	case javaHome != "":
		return filepath.Join(javaHome, "bin", "java")
	default:
		return "java"
	}
}

// Java is the executable the worker is started with.
func (m *Manager) Java() string { return m.java }

// CommandLine returns the worker arguments, excluding the java binary itself.
func (m *Manager) CommandLine(workerClasspath []string, s *spec.Spec) []string {
	var args []string
	if heap, ok := s.MaxHeapSize(); ok {
		args = append(args, "-Xmx"+heap)
	}
	args = append(args, s.JVMArgs()...)
	for _, p := range s.SystemProperties() {
		args = append(args, "-D"+p.Name+"="+p.Value)
	}
	args = append(args,
		"-cp", strings.Join(workerClasspath, string(filepath.ListSeparator)),
		m.mainClass,
		"-exitcode",
	)
	return append(args, s.Arguments()...)
}

type waitOutcome struct {
	stream error
	wait   error
}

// Run executes the analysis described by s in a fresh JVM and blocks until it
// is gone. A worker that crashes or misbehaves yields a Result with Err set.
// The returned error is reserved for interruption and unusable input.
func (m *Manager) Run(ctx context.Context, workingDir string, workerClasspath []string, s *spec.Spec) (*results.Result, error) {
	if s == nil {
		return nil, failures.Newf(failures.ErrInvalidConfiguration, "no analysis specification to run")
	}
	if len(workerClasspath) == 0 {
		return nil, failures.Newf(failures.ErrInvalidConfiguration, "the SpotBugs classpath is empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, interrupted(err)
	}

	logger := m.logger.With(zap.String("run_id", uuid.NewString()))
	args := m.CommandLine(workerClasspath, s)

	cmd := m.newCommand(m.java, args...)
	cmd.Dir = workingDir
	cmd.Env = isolatedEnv(cmd.Env)
	isolateProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return launchFailure(err), nil
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return launchFailure(err), nil
	}

	logger.Debug("Starting SpotBugs worker",
		zap.String("java", m.java),
		zap.Strings("args", args),
		zap.String("working_dir", workingDir),
	)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		logger.Error("Failed to start SpotBugs worker", zap.Error(err))
		return launchFailure(err), nil
	}
	if m.onStart != nil {
		m.onStart(cmd.Process.Pid)
	}

	var summary engineSummary
	tail := newLineTail(stderrTailLines)
	debug := s.Debug()

	var g errgroup.Group
	g.Go(func() error {
		return pump(stdout, func(line string) {
			if debug {
				logger.Debug(line, zap.String("stream", "stdout"))
			}
		})
	})
	g.Go(func() error {
		return pump(stderr, func(line string) {
			summary.observe(line)
			tail.add(line)
			if debug {
				logger.Debug(line, zap.String("stream", "stderr"))
			}
		})
	})

	// Pipes must be drained before Wait closes them.
	done := make(chan waitOutcome, 1)
	go func() {
		streamErr := g.Wait()
		done <- waitOutcome{stream: streamErr, wait: cmd.Wait()}
	}()

	var out waitOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		m.stop(logger, cmd.Process, done)
		logger.Warn("SpotBugs worker interrupted", zap.Duration("after", time.Since(start)))
		return nil, interrupted(ctx.Err())
	}

	res := &results.Result{
		BugCount:          summary.Bugs,
		MissingClassCount: summary.Missing,
		ErrorCount:        summary.Errors,
		Duration:          time.Since(start),
	}
	res.ExitCode, res.Err = classify(out, &summary, tail)

	fields := []zap.Field{
		zap.Int("exit_code", res.ExitCode),
		zap.Int("bugs", res.BugCount),
		zap.Int("missing_classes", res.MissingClassCount),
		zap.Int("errors", res.ErrorCount),
		zap.Duration("duration", res.Duration),
	}
	if res.Err != nil {
		logger.Error("SpotBugs worker failed", append(fields, zap.Error(res.Err))...)
	} else {
		logger.Info("SpotBugs worker finished", fields...)
	}
	return res, nil
}

// classify reads the exit status and decides whether the run can be trusted.
func classify(out waitOutcome, summary *engineSummary, tail *lineTail) (int, error) {
	exitCode := 0
	if out.wait != nil {
		var exitErr *exec.ExitError
		if !errors.As(out.wait, &exitErr) {
			return -1, infrastructure("failed waiting for the SpotBugs worker", out.wait, tail)
		}
		exitCode = exitErr.ExitCode()
		if exitCode < 0 {
			return exitCode, infrastructure("the SpotBugs worker was terminated ("+exitErr.String()+")", nil, tail)
		}
	}
	if out.stream != nil {
		return exitCode, infrastructure("failed to read the SpotBugs worker output", out.stream, tail)
	}
	if exitCode&^exitKnownBits != 0 {
		return exitCode, infrastructure(fmt.Sprintf("the SpotBugs worker exited with unexpected code %d", exitCode), nil, tail)
	}
	if msg := summary.mismatch(exitCode); msg != "" {
		return exitCode, infrastructure("the SpotBugs worker result is inconsistent: "+msg, nil, tail)
	}
	return exitCode, nil
}

// stop kills the worker's process group and reaps it.
func (m *Manager) stop(logger *zap.Logger, p *os.Process, done <-chan waitOutcome) {
	if m.killGrace > 0 {
		if err := terminateGroup(p); err == nil {
			timer := time.NewTimer(m.killGrace)
			defer timer.Stop()
			select {
			case <-done:
				return
			case <-timer.C:
			}
		}
	}
	if err := killGroup(p); err != nil {
		logger.Debug("Killing the SpotBugs worker process group failed", zap.Int("pid", p.Pid), zap.Error(err))
	}
	<-done
}

func pump(r io.Reader, handle func(string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		handle(sc.Text())
	}
	if err := sc.Err(); err != nil {
		// Keep draining so the worker never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}

func isolatedEnv(base []string) []string {
	if base == nil {
		base = os.Environ()
	}
	out := make([]string, 0, len(base))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if slices.Contains(strippedEnv, name) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func interrupted(cause error) error {
	return failures.New(failures.ErrInterrupted, "SpotBugs analysis was interrupted", cause)
}

func launchFailure(err error) *results.Result {
	return &results.Result{
		ExitCode: -1,
		Err:      failures.New(failures.ErrWorkerInfrastructure, "failed to start the SpotBugs worker", err),
	}
}

func infrastructure(msg string, cause error, tail *lineTail) error {
	if lines := tail.lines(); len(lines) > 0 {
		msg += "; last worker output:\n  " + strings.Join(lines, "\n  ")
	}
	return failures.New(failures.ErrWorkerInfrastructure, msg, cause)
}

// lineTail keeps the last n lines written to it.
type lineTail struct {
	n   int
	buf []string
}

func newLineTail(n int) *lineTail { return &lineTail{n: n} }

func (t *lineTail) add(line string) {
	if len(t.buf) == t.n {
		t.buf = append(t.buf[:0], t.buf[1:]...)
	}
	t.buf = append(t.buf, line)
}

func (t *lineTail) lines() []string { return slices.Clone(t.buf) }
