// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/spotbugs-runner/internal/config"
	"github.com/xkilldash9x/spotbugs-runner/internal/failures"
	"github.com/xkilldash9x/spotbugs-runner/internal/observability"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitInterrupted = 130
)

// flagKeys maps command line flags to configuration keys. Flags only override
// the file and environment when they are set explicitly.
var flagKeys = map[string]string{
	"log-level":          "logger.level",
	"log-format":         "logger.format",
	"log-file":           "logger.log_file",
	"java-home":          "engine.java_home",
	"java":               "engine.java_executable",
	"platform-version":   "engine.platform_version",
	"working-dir":        "engine.working_dir",
	"scratch-dir":        "engine.scratch_dir",
	"kill-grace":         "engine.kill_grace",
	"classes":            "task.classes",
	"classpath":          "task.classpath",
	"spotbugs-classpath": "task.spotbugs_classpath",
	"plugin-classpath":   "task.plugin_classpath",
	"source-dirs":        "task.source_dirs",
	"effort":             "task.effort",
	"report-level":       "task.report_level",
	"max-heap-size":      "task.max_heap_size",
	"show-progress":      "task.show_progress",
	"ignore-failures":    "task.ignore_failures",
	"visitors":           "task.visitors",
	"omit-visitors":      "task.omit_visitors",
	"summary-file":       "task.summary_file",
}

// app carries state shared by the subcommands of one command tree.
type app struct {
	v       *viper.Viper
	cfgFile string
	debug   bool
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree with its own configuration.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "spotbugs-runner",
		Short:         "Runs SpotBugs in an isolated JVM and turns its findings into a build verdict.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./spotbugs.yaml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "log at debug level, including the worker's own output")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (console or json)")
	root.PersistentFlags().String("log-file", "", "also write JSON logs to this rotating file")
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	root.AddCommand(newCheckCmd(a), newSpecCmd(a), newVersionCmd())
	return root
}

// Execute runs the command line against ctx.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	err := root.ExecuteContext(ctx)
	if err != nil {
		var failure *failures.Failure
		if !errors.As(err, &failure) {
			// Failures were already logged by the pipeline.
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
		}
	}
	return err
}

// ExitCode maps the result of Execute to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, failures.ErrInterrupted), errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return ExitFailed
	}
}

func (a *app) initialize(cmd *cobra.Command) error {
	config.SetDefaults(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigName("spotbugs")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("SPOTBUGS")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}
	if a.debug {
		a.v.Set("logger.level", "debug")
	}

	cfg, err := config.NewConfigFromViper(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	observability.InitializeLogger(cfg.Logger())
	observability.GetLogger().Debug("Configuration loaded",
		zap.String("version", Version),
		zap.String("config_file", a.v.ConfigFileUsed()),
	)
	return nil
}

// addTaskFlags registers the flags shared by commands that load a task.
func addTaskFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("java-home", "", "JDK used to run the worker (defaults to $JAVA_HOME)")
	f.String("java", "", "explicit java executable for the worker")
	f.String("platform-version", "", "Java version of the worker, skips detection (e.g. 17)")
	f.String("working-dir", "", "working directory of the worker; relative paths resolve against it")
	f.String("scratch-dir", "", "directory for materialized inline filters")
	f.Duration("kill-grace", 0, "time between SIGTERM and SIGKILL when interrupted")
	f.StringSlice("classes", nil, "class directories or jars to analyze")
	f.StringSlice("classpath", nil, "auxiliary classpath used only for type resolution")
	f.StringSlice("spotbugs-classpath", nil, "SpotBugs engine jars")
	f.StringSlice("plugin-classpath", nil, "SpotBugs plugin jars")
	f.StringSlice("source-dirs", nil, "source directories used to map findings to lines")
	f.String("effort", "", "analysis effort (min, default, max)")
	f.String("report-level", "", "report threshold (experimental, low, medium, high)")
	f.String("max-heap-size", "", "maximum heap of the worker JVM, e.g. 1g")
	f.Bool("show-progress", false, "ask the engine to print progress")
	f.Bool("ignore-failures", false, "warn instead of failing when bugs are found")
	f.StringSlice("visitors", nil, "detectors to run")
	f.StringSlice("omit-visitors", nil, "detectors to skip")
	f.String("summary-file", "", "write a JSON summary of the run to this file")
}
