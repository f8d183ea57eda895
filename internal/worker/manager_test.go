// File: internal/worker/manager_test.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/spotbugs-runner/internal/failures"
	"github.com/xkilldash9x/spotbugs-runner/internal/spec"
	"github.com/xkilldash9x/spotbugs-runner/internal/task"
)

// -- Test Helpers --

var engineClasspath = []string{"/cache/spotbugs-4.9.3.jar", "/cache/asm-9.7.jar"}

// fakeJVM re-executes the test binary in place of java. The mode selects what
// the fake engine does.
func fakeJVM(mode string) CommandFactory {
	return func(name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.Command(os.Args[0], cs...)
		cmd.Env = append(os.Environ(),
			"GO_WANT_HELPER_PROCESS=1",
			"FAKE_ENGINE_MODE="+mode,
			"CLASSPATH=/leaked/classes",
			"JAVA_TOOL_OPTIONS=-javaagent:/leaked/agent.jar",
		)
		return cmd
	}
}

func buildSpec(t *testing.T, debug bool) *spec.Spec {
	t.Helper()
	m := task.NewModel()
	m.Classes = []string{"build/classes/java/main"}
	m.MaxHeapSize = "512m"
	m.AddJVMArgs("-Xss4m")
	m.SetSystemProperty("findbugs.assertionmethods", "org.Assert.check")
	s, err := spec.Build(m, spec.Options{Debug: debug, BaseDir: t.TempDir()})
	require.NoError(t, err)
	return s
}

func newObservedManager(mode string, opts ...Option) (*Manager, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	opts = append([]Option{WithCommandFactory(fakeJVM(mode))}, opts...)
	return NewManager(zap.New(core), opts...), logs
}

func streamLines(logs *observer.ObservedLogs, stream string) []string {
	var out []string
	for _, e := range logs.FilterField(zap.String("stream", stream)).All() {
		out = append(out, e.Message)
	}
	return out
}

// -- Tests --

func TestCommandLine(t *testing.T) {
	m := NewManager(nil)
	s := buildSpec(t, false)

	args := m.CommandLine(engineClasspath, s)
	sep := string(filepath.ListSeparator)
	want := append([]string{
		"-Xmx512m",
		"-Xss4m",
		"-Dfindbugs.assertionmethods=org.Assert.check",
		"-cp", "/cache/spotbugs-4.9.3.jar" + sep + "/cache/asm-9.7.jar",
		DefaultMainClass,
		"-exitcode",
	}, s.Arguments()...)
	assert.Equal(t, want, args)
}

func TestCommandLine_DefaultHeap(t *testing.T) {
	m := task.NewModel()
	m.Classes = []string{"a.jar"}
	s, err := spec.Build(m, spec.Options{BaseDir: t.TempDir()})
	require.NoError(t, err)

	args := NewManager(nil, WithMainClass("com.example.Main")).CommandLine(engineClasspath, s)
	for _, a := range args {
		assert.False(t, strings.HasPrefix(a, "-Xmx"), "no heap flag expected, got %s", a)
	}
	assert.Contains(t, args, "com.example.Main")
}

func TestJavaExecutable(t *testing.T) {
	assert.Equal(t, "/usr/bin/java21", JavaExecutable("/usr/bin/java21", "/opt/jdk"))
	assert.Equal(t, filepath.Join("/opt/jdk", "bin", "java"), JavaExecutable("", "/opt/jdk"))
	assert.Equal(t, "java", JavaExecutable("", ""))
}

func TestRun_Clean(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, logs := newObservedManager("clean")
	res, err := m.Run(context.Background(), t.TempDir(), engineClasspath, buildSpec(t, true))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.NoError(t, res.Err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Zero(t, res.BugCount)
	assert.Positive(t, res.Duration)
	assert.Contains(t, streamLines(logs, "stdout"), "Scanning archives (1 / 1)")
}

func TestRun_BugsFound(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, _ := newObservedManager("bugs")
	res, err := m.Run(context.Background(), t.TempDir(), engineClasspath, buildSpec(t, false))
	require.NoError(t, err)

	assert.NoError(t, res.Err)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, 3, res.BugCount)
}

func TestRun_AllBits(t *testing.T) {
	m, _ := newObservedManager("all")
	res, err := m.Run(context.Background(), t.TempDir(), engineClasspath, buildSpec(t, false))
	require.NoError(t, err)

	assert.NoError(t, res.Err)
	assert.Equal(t, 7, res.ExitCode)
	assert.Equal(t, 2, res.BugCount)
	assert.Equal(t, 4, res.MissingClassCount)
	assert.Equal(t, 1, res.ErrorCount)
}

func TestRun_CrashIsData(t *testing.T) {
	tests := []struct {
		mode    string
		wantMsg string
	}{
		{mode: "crash", wantMsg: "inconsistent"},
		{mode: "badcode", wantMsg: "unexpected code 9"},
		{mode: "mismatch", wantMsg: "missing classes"},
	}
	for _, tc := range tests {
		t.Run(tc.mode, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			m, _ := newObservedManager(tc.mode)
			res, err := m.Run(context.Background(), t.TempDir(), engineClasspath, buildSpec(t, false))
			require.NoError(t, err, "a misbehaving worker is reported through the result")
			require.Error(t, res.Err)
			assert.True(t, errors.Is(res.Err, failures.ErrWorkerInfrastructure))
			assert.Contains(t, res.Err.Error(), tc.wantMsg)
		})
	}
}

func TestRun_CrashKeepsStderrTail(t *testing.T) {
	m, _ := newObservedManager("crash")
	res, err := m.Run(context.Background(), t.TempDir(), engineClasspath, buildSpec(t, false))
	require.NoError(t, err)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "java.lang.OutOfMemoryError")
}

func TestRun_EnvironmentIsIsolated(t *testing.T) {
	m, logs := newObservedManager("env")
	dir := t.TempDir()
	res, err := m.Run(context.Background(), dir, engineClasspath, buildSpec(t, true))
	require.NoError(t, err)
	require.NoError(t, res.Err)

	out := streamLines(logs, "stdout")
	assert.Contains(t, out, "CLASSPATH=")
	assert.Contains(t, out, "JAVA_TOOL_OPTIONS=")
	assert.Contains(t, out, "HAS_EXITCODE=true")

	wd, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Contains(t, out, "PWD="+wd)
}

func TestRun_StreamsOnlyLoggedInDebug(t *testing.T) {
	m, logs := newObservedManager("clean")
	_, err := m.Run(context.Background(), t.TempDir(), engineClasspath, buildSpec(t, false))
	require.NoError(t, err)
	assert.Empty(t, streamLines(logs, "stdout"))
}

func TestRun_EveryLogLineCarriesRunID(t *testing.T) {
	m, logs := newObservedManager("bugs")
	_, err := m.Run(context.Background(), t.TempDir(), engineClasspath, buildSpec(t, true))
	require.NoError(t, err)

	entries := logs.All()
	require.NotEmpty(t, entries)
	var runID string
	for _, e := range entries {
		id, ok := e.ContextMap()["run_id"].(string)
		require.True(t, ok, "entry %q has no run_id", e.Message)
		if runID == "" {
			runID = id
		}
		assert.Equal(t, runID, id)
	}
}

func TestRun_LaunchFailure(t *testing.T) {
	m := NewManager(zap.NewNop(), WithJavaExecutable(filepath.Join(t.TempDir(), "no-such-java")))
	res, err := m.Run(context.Background(), t.TempDir(), engineClasspath, buildSpec(t, false))
	require.NoError(t, err)
	require.Error(t, res.Err)
	assert.True(t, errors.Is(res.Err, failures.ErrWorkerInfrastructure))
	assert.Equal(t, -1, res.ExitCode)
}

func TestRun_AlreadyCancelled(t *testing.T) {
	called := false
	m := NewManager(zap.NewNop(), WithCommandFactory(func(name string, args ...string) *exec.Cmd {
		called = true
		return exec.Command(name, args...)
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := m.Run(ctx, t.TempDir(), engineClasspath, buildSpec(t, false))
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, failures.ErrInterrupted))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, called, "no process may be started")
}

func TestRun_InvalidInput(t *testing.T) {
	m := NewManager(zap.NewNop())
	_, err := m.Run(context.Background(), t.TempDir(), engineClasspath, nil)
	assert.True(t, errors.Is(err, failures.ErrInvalidConfiguration))

	_, err = m.Run(context.Background(), t.TempDir(), nil, buildSpec(t, false))
	assert.True(t, errors.Is(err, failures.ErrInvalidConfiguration))
}

func TestIsolatedEnv(t *testing.T) {
	got := isolatedEnv([]string{"PATH=/bin", "CLASSPATH=/x", "JAVA_TOOL_OPTIONS=-Dx", "CLASSPATH_EXTRA=keep", "HOME=/root"})
	assert.Equal(t, []string{"PATH=/bin", "CLASSPATH_EXTRA=keep", "HOME=/root"}, got)
}

func TestLineTail(t *testing.T) {
	tail := newLineTail(3)
	for i := 1; i <= 5; i++ {
		tail.add(fmt.Sprintf("line %d", i))
	}
	assert.Equal(t, []string{"line 3", "line 4", "line 5"}, tail.lines())
}

// TestHelperProcess is the fake JVM. It is not a real test.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) > 0 {
		args = args[1:]
	}

	switch os.Getenv("FAKE_ENGINE_MODE") {
	case "clean":
		fmt.Println("Scanning archives (1 / 1)")
		os.Exit(0)
	case "bugs":
		fmt.Fprintln(os.Stderr, "Warnings generated: 3")
		os.Exit(1)
	case "all":
		fmt.Fprintln(os.Stderr, "Warnings generated: 2")
		fmt.Fprintln(os.Stderr, "Missing classes: 4")
		fmt.Fprintln(os.Stderr, "Analysis errors: 1")
		os.Exit(7)
	case "crash":
		fmt.Fprintln(os.Stderr, `Exception in thread "main" java.lang.OutOfMemoryError: Java heap space`)
		os.Exit(1)
	case "badcode":
		os.Exit(9)
	case "mismatch":
		fmt.Fprintln(os.Stderr, "Missing classes: 2")
		os.Exit(0)
	case "env":
		wd, _ := os.Getwd()
		wd, _ = filepath.EvalSymlinks(wd)
		fmt.Println("CLASSPATH=" + os.Getenv("CLASSPATH"))
		fmt.Println("JAVA_TOOL_OPTIONS=" + os.Getenv("JAVA_TOOL_OPTIONS"))
		fmt.Println("PWD=" + wd)
		hasExitCode := false
		for _, a := range args {
			if a == "-exitcode" {
				hasExitCode = true
			}
		}
		fmt.Printf("HAS_EXITCODE=%v\n", hasExitCode)
		os.Exit(0)
	case "sleep":
		time.Sleep(time.Minute)
		os.Exit(0)
	case "term":
		// Exits promptly on SIGTERM, which the default Go handler does.
		time.Sleep(time.Minute)
		os.Exit(0)
	case "selfkill":
		p, _ := os.FindProcess(os.Getpid())
		_ = p.Kill()
		time.Sleep(time.Minute)
	}
	os.Exit(2)
}
