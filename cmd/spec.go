// File: cmd/spec.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/spotbugs-runner/internal/failures"
	"github.com/xkilldash9x/spotbugs-runner/internal/spec"
	"github.com/xkilldash9x/spotbugs-runner/internal/worker"
)

// specDocument is what the spec command prints.
type specDocument struct {
	Spec    spec.View `yaml:"spec"`
	Command []string  `yaml:"command"`
}

func newSpecCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spec",
		Short: "Print the resolved analysis and worker command without running it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadRunEnv(a.cfg)
			if err != nil {
				return err
			}
			if !env.model.HasClasses() {
				err := failures.Newf(failures.ErrNoClasses, "no classes to analyze")
				env.logger.Error("Nothing to describe", zap.Error(err))
				return err
			}

			s, err := spec.Build(env.model, env.specOptions())
			if err != nil {
				env.logger.Error("Failed to resolve the analysis", zap.Error(err))
				return err
			}

			mgr := worker.NewManager(env.logger, env.workerOptions()...)
			doc := specDocument{
				Spec:    s.View(),
				Command: append([]string{mgr.Java()}, mgr.CommandLine(env.model.SpotbugsClasspath, s)...),
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return fmt.Errorf("failed to encode specification: %w", err)
			}
			return enc.Close()
		},
	}
	addTaskFlags(cmd)
	return cmd
}
