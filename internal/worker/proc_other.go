//go:build !unix

package worker

import (
	"os"
	"os/exec"
)

// Process groups are a unix notion; elsewhere only the worker itself is signalled.
func isolateProcessGroup(*exec.Cmd) {}

func terminateGroup(p *os.Process) error { return p.Kill() }

func killGroup(p *os.Process) error { return p.Kill() }
