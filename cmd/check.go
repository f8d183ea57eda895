// File: cmd/check.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/spotbugs-runner/internal/results"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Analyze the configured classes with SpotBugs",
		Long: `Runs SpotBugs in a separate JVM against the configured classes and
fails when bugs are found, unless ignore_failures is set.

Settings come from spotbugs.yaml, SPOTBUGS_* environment variables and flags,
in increasing order of precedence.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := loadRunEnv(a.cfg)
			if err != nil {
				return err
			}
			orch, err := env.newOrchestrator(ctx)
			if err != nil {
				return err
			}

			outcome, err := orch.Run(ctx, env.model)
			env.logger.Debug("Analysis finished", zap.Stringer("outcome", outcome.Kind))
			if err != nil {
				return err
			}
			if outcome.Kind == results.Warned {
				fmt.Fprintln(cmd.ErrOrStderr(), outcome.Message)
			}
			return nil
		},
	}
	addTaskFlags(cmd)
	return cmd
}
