// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/spotbugs-runner/internal/classpath"
	"github.com/xkilldash9x/spotbugs-runner/internal/failures"
	"github.com/xkilldash9x/spotbugs-runner/internal/mocks"
	"github.com/xkilldash9x/spotbugs-runner/internal/observability"
	"github.com/xkilldash9x/spotbugs-runner/internal/orchestrator"
	"github.com/xkilldash9x/spotbugs-runner/internal/results"
	"github.com/xkilldash9x/spotbugs-runner/internal/worker"
)

// -- Helpers --

// runCommand executes a fresh command tree and captures its output.
func runCommand(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// stubWorker replaces the worker factory for the duration of the test.
func stubWorker(t *testing.T) *mocks.MockWorkerRunner {
	t.Helper()
	m := new(mocks.MockWorkerRunner)
	original := newWorker
	newWorker = func(*zap.Logger, ...worker.Option) orchestrator.WorkerRunner { return m }
	t.Cleanup(func() { newWorker = original })
	return m
}

// forbidDetection fails the test if the platform probe starts java.
func forbidDetection(t *testing.T) {
	t.Helper()
	original := detectPlatform
	detectPlatform = func(context.Context, string, string) (classpath.Platform, error) {
		t.Fatal("java must not be probed")
		return classpath.Platform{}, nil
	}
	t.Cleanup(func() { detectPlatform = original })
}

func taskArgs(dir string, extra ...string) []string {
	args := []string{
		"--working-dir", dir,
		"--classes", "build/classes/java/main",
		"--spotbugs-classpath", "/cache/spotbugs-4.8.6.jar,/cache/asm-9.7.jar",
		"--platform-version", "17",
	}
	return append(args, extra...)
}

// -- Version & exit codes --

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "spotbugs-runner version dev\n", stdout)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{failures.Newf(failures.ErrFindingsPresent, "2 bugs"), ExitFailed},
		{failures.Newf(failures.ErrClasspathIncompatibility, "too old"), ExitFailed},
		{failures.Newf(failures.ErrInterrupted, "stopped"), ExitInterrupted},
		{fmt.Errorf("wrapped: %w", context.Canceled), ExitInterrupted},
		{errors.New("unknown flag"), ExitFailed},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ExitCode(tc.err), "%v", tc.err)
	}
}

// -- spec --

func TestSpecCommand_PrintsResolvedRun(t *testing.T) {
	forbidDetection(t)
	dir := t.TempDir()

	stdout, _, err := runCommand(t, append([]string{"spec"}, taskArgs(dir,
		"--java", "/opt/jdk/bin/java",
		"--max-heap-size", "1g",
		"--effort", "MAX",
	)...)...)
	require.NoError(t, err)

	var doc struct {
		Spec struct {
			Arguments   []string `yaml:"arguments"`
			Classes     []string `yaml:"classes"`
			Effort      string   `yaml:"effort"`
			MaxHeapSize string   `yaml:"max_heap_size"`
			Debug       bool     `yaml:"debug"`
		} `yaml:"spec"`
		Command []string `yaml:"command"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &doc))

	assert.Equal(t, []string{filepath.Join(dir, "build", "classes", "java", "main")}, doc.Spec.Classes)
	assert.Equal(t, "max", doc.Spec.Effort)
	assert.Equal(t, "1g", doc.Spec.MaxHeapSize)
	assert.False(t, doc.Spec.Debug)

	require.NotEmpty(t, doc.Command)
	assert.Equal(t, "/opt/jdk/bin/java", doc.Command[0])
	assert.Equal(t, "-Xmx1g", doc.Command[1])
	assert.Contains(t, doc.Command, worker.DefaultMainClass)
	assert.Contains(t, doc.Command, "-effort:max")
	assert.Equal(t, doc.Spec.Classes[0], doc.Command[len(doc.Command)-1], "classes come last")
}

func TestSpecCommand_DebugFlag(t *testing.T) {
	stdout, _, err := runCommand(t, append([]string{"spec", "--debug"}, taskArgs(t.TempDir())...)...)
	require.NoError(t, err)
	assert.Contains(t, stdout, "debug: true")
	assert.Contains(t, stdout, "max_heap_size: engine-default")
}

func TestSpecCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "spotbugs.yaml")
	cfg := `
engine:
  platform_version: "11"
task:
  classes: [out/classes]
  spotbugs_classpath: [/cache/spotbugs-4.8.6.jar]
  report_level: high
  system_properties:
    - name: findbugs.assertionmethods
      value: org.Assert.check
  exclude_filter:
    content: <FindBugsFilter><Match><Bug pattern="EI_EXPOSE_REP"/></Match></FindBugsFilter>
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	stdout, _, err := runCommand(t, "spec", "--config", cfgPath,
		"--working-dir", dir, "--scratch-dir", filepath.Join(dir, "scratch"))
	require.NoError(t, err)

	assert.Contains(t, stdout, "-Dfindbugs.assertionmethods=org.Assert.check")
	assert.Contains(t, stdout, "report_level: high")
	assert.Contains(t, stdout, filepath.Join(dir, "out", "classes"))
	assert.Contains(t, stdout, filepath.Join(dir, "scratch"), "the inline filter is materialized in the scratch directory")
}

func TestSpecCommand_Errors(t *testing.T) {
	t.Run("no classes", func(t *testing.T) {
		_, _, err := runCommand(t, "spec", "--working-dir", t.TempDir())
		assert.True(t, errors.Is(err, failures.ErrNoClasses))
	})
	t.Run("invalid effort", func(t *testing.T) {
		_, _, err := runCommand(t, append([]string{"spec"}, taskArgs(t.TempDir(), "--effort", "extreme")...)...)
		require.Error(t, err)
		assert.True(t, errors.Is(err, failures.ErrInvalidConfiguration))
		assert.Contains(t, err.Error(), "extreme")
	})
	t.Run("invalid log format", func(t *testing.T) {
		_, _, err := runCommand(t, append([]string{"spec"}, taskArgs(t.TempDir(), "--log-format", "xml")...)...)
		assert.Error(t, err)
	})
}

// -- check --

func TestCheckCommand_Clean(t *testing.T) {
	forbidDetection(t)
	w := stubWorker(t)
	dir := t.TempDir()
	summary := filepath.Join(dir, "summary.json")

	w.On("Run", mock.Anything, dir, []string{"/cache/spotbugs-4.8.6.jar", "/cache/asm-9.7.jar"}, mock.Anything).
		Return(&results.Result{}, nil).Once()

	_, _, err := runCommand(t, append([]string{"check"}, taskArgs(dir, "--summary-file", summary)...)...)
	require.NoError(t, err)
	w.AssertExpectations(t)
	assert.FileExists(t, summary)
}

func TestCheckCommand_Findings(t *testing.T) {
	dir := t.TempDir()

	t.Run("fail the build", func(t *testing.T) {
		w := stubWorker(t)
		w.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&results.Result{BugCount: 2, ExitCode: 1}, nil)

		_, _, err := runCommand(t, append([]string{"check"}, taskArgs(dir)...)...)
		require.Error(t, err)
		assert.True(t, errors.Is(err, failures.ErrFindingsPresent))
		assert.Contains(t, err.Error(), "2 bug(s) reported")
		assert.Equal(t, ExitFailed, ExitCode(err))
	})

	t.Run("ignore failures", func(t *testing.T) {
		w := stubWorker(t)
		w.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&results.Result{BugCount: 2, ExitCode: 1}, nil)

		_, stderr, err := runCommand(t, append([]string{"check"}, taskArgs(dir, "--ignore-failures")...)...)
		require.NoError(t, err)
		assert.Contains(t, stderr, "SpotBugs rule violations were found")
		assert.Contains(t, stderr, "file://")
	})
}

func TestCheckCommand_NoSourceSkipsJava(t *testing.T) {
	forbidDetection(t)
	w := stubWorker(t)

	_, _, err := runCommand(t, "check", "--working-dir", t.TempDir())
	require.NoError(t, err)
	w.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckCommand_IncompatiblePlatform(t *testing.T) {
	w := stubWorker(t)

	_, _, err := runCommand(t, "check",
		"--working-dir", t.TempDir(),
		"--classes", "classes",
		"--spotbugs-classpath", "/cache/spotbugs-4.9.3.jar",
		"--platform-version", "1.8.0_292",
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, failures.ErrClasspathIncompatibility))
	assert.Contains(t, err.Error(), "Java 11")
	w.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckCommand_DetectsPlatform(t *testing.T) {
	w := stubWorker(t)
	w.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(&results.Result{}, nil)

	original := detectPlatform
	t.Cleanup(func() { detectPlatform = original })
	var gotHome string
	detectPlatform = func(_ context.Context, javaHome, _ string) (classpath.Platform, error) {
		gotHome = javaHome
		return classpath.Platform{Major: 21, Raw: "21.0.1"}, nil
	}

	_, _, err := runCommand(t, "check",
		"--working-dir", t.TempDir(),
		"--classes", "classes",
		"--spotbugs-classpath", "/cache/spotbugs-4.9.3.jar",
		"--java-home", "/opt/jdk-21",
	)
	require.NoError(t, err)
	assert.Equal(t, "/opt/jdk-21", gotHome)
}

func TestCheckCommand_WorkerInterrupted(t *testing.T) {
	w := stubWorker(t)
	w.On("Run", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, failures.New(failures.ErrInterrupted, "SpotBugs analysis was interrupted", context.Canceled))

	_, _, err := runCommand(t, append([]string{"check"}, taskArgs(t.TempDir())...)...)
	assert.Equal(t, ExitInterrupted, ExitCode(err))
}
