// File: cmd/spotbugs-runner/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/xkilldash9x/spotbugs-runner/cmd"
	"github.com/xkilldash9x/spotbugs-runner/internal/observability"
)

const panicLogFile = "spotbugs-runner-panic.log"

// Function variables so tests can observe the exit path.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
	execute     = cmd.Execute
)

func main() {
	defer handlePanic()
	osExit(run())
}

// run executes the command line and returns the process exit status.
func run() int {
	// SIGINT and SIGTERM cancel the context, which stops the worker JVM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := execute(ctx)
	observability.Sync()
	return cmd.ExitCode(err)
}

// handlePanic records the stack of an unexpected panic and exits non zero.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(cmd.ExitFailed)
		return
	}
	fmt.Fprintf(os.Stderr, "spotbugs-runner crashed unexpectedly. Details logged to %s\n", panicLogFile)
	osExit(cmd.ExitFailed)
}
