// File: internal/worker/summary.go
package worker

import (
	"fmt"
	"regexp"
	"strconv"
)

// Bits of the engine's -exitcode protocol.
const (
	exitBugsFound      = 1
	exitMissingClasses = 2
	exitErrors         = 4
	exitKnownBits      = exitBugsFound | exitMissingClasses | exitErrors
)

// The engine prints each count on stderr only when it is non zero.
var summaryLine = regexp.MustCompile(`^\s*(Warnings generated|Missing classes|Analysis errors):\s*(\d+)\s*$`)

// engineSummary accumulates the counts reported on stderr.
type engineSummary struct {
	Bugs    int
	Missing int
	Errors  int
}

// observe records a summary line and reports whether line was one.
func (s *engineSummary) observe(line string) bool {
	m := summaryLine.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return false
	}
	switch m[1] {
	case "Warnings generated":
		s.Bugs = n
	case "Missing classes":
		s.Missing = n
	case "Analysis errors":
		s.Errors = n
	}
	return true
}

// mismatch compares the counts with the exit code bits and describes the
// first disagreement, or returns "" when both tell the same story.
func (s *engineSummary) mismatch(exitCode int) string {
	checks := []struct {
		bit   int
		count int
		what  string
	}{
		{exitBugsFound, s.Bugs, "bugs found"},
		{exitMissingClasses, s.Missing, "missing classes"},
		{exitErrors, s.Errors, "analysis errors"},
	}
	for _, c := range checks {
		set := exitCode&c.bit != 0
		if set != (c.count > 0) {
			return fmt.Sprintf("exit code %d disagrees with the reported count of %s (%d)", exitCode, c.what, c.count)
		}
	}
	return ""
}
