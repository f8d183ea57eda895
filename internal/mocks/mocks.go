// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/spotbugs-runner/internal/results"
	"github.com/xkilldash9x/spotbugs-runner/internal/spec"
)

// -- Validator Mock --

// MockValidator mocks orchestrator.Validator.
type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) Validate(fileNames []string) error {
	args := m.Called(fileNames)
	return args.Error(0)
}

// -- Worker Mock --

// MockWorkerRunner mocks orchestrator.WorkerRunner.
type MockWorkerRunner struct {
	mock.Mock
}

func (m *MockWorkerRunner) Run(ctx context.Context, workingDir string, workerClasspath []string, s *spec.Spec) (*results.Result, error) {
	args := m.Called(ctx, workingDir, workerClasspath, s)
	var res *results.Result
	if r := args.Get(0); r != nil {
		res = r.(*results.Result)
	}
	return res, args.Error(1)
}
