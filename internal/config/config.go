// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/spotbugs-runner/internal/task"
)

// Interface defines the contract for accessing application configuration.
type Interface interface {
	Logger() LoggerConfig
	Engine() EngineConfig
	Task() TaskConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg LoggerConfig `mapstructure:"logger" yaml:"logger"`
	EngineCfg EngineConfig `mapstructure:"engine" yaml:"engine"`
	TaskCfg   TaskConfig   `mapstructure:"task" yaml:"task"`
}

func (c *Config) Logger() LoggerConfig { return c.LoggerCfg }
func (c *Config) Engine() EngineConfig { return c.EngineCfg }
func (c *Config) Task() TaskConfig     { return c.TaskCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig describes the JVM the worker runs on and where it runs.
type EngineConfig struct {
	JavaHome       string `mapstructure:"java_home" yaml:"java_home"`
	JavaExecutable string `mapstructure:"java_executable" yaml:"java_executable"`
	MainClass      string `mapstructure:"main_class" yaml:"main_class"`
	// PlatformVersion skips Java detection when set, e.g. "17" or "1.8.0_292".
	PlatformVersion string        `mapstructure:"platform_version" yaml:"platform_version"`
	WorkingDir      string        `mapstructure:"working_dir" yaml:"working_dir"`
	ScratchDir      string        `mapstructure:"scratch_dir" yaml:"scratch_dir"`
	KillGrace       time.Duration `mapstructure:"kill_grace" yaml:"kill_grace"`
}

// FilterConfig points at a filter file or carries the filter inline. At most
// one of the two may be set.
type FilterConfig struct {
	File    string `mapstructure:"file" yaml:"file"`
	Content string `mapstructure:"content" yaml:"content"`
}

func (f FilterConfig) empty() bool { return f.File == "" && f.Content == "" }

// PropertyConfig is one JVM system property.
type PropertyConfig struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Value string `mapstructure:"value" yaml:"value"`
}

// ReportConfig configures one named report sink.
type ReportConfig struct {
	Enabled      bool   `mapstructure:"enabled" yaml:"enabled"`
	Destination  string `mapstructure:"destination" yaml:"destination"`
	WithMessages bool   `mapstructure:"with_messages" yaml:"with_messages"`
	Stylesheet   string `mapstructure:"stylesheet" yaml:"stylesheet"`
}

// TaskConfig is the file/env/flag form of the analysis task.
type TaskConfig struct {
	Classes           []string `mapstructure:"classes" yaml:"classes"`
	Classpath         []string `mapstructure:"classpath" yaml:"classpath"`
	SpotbugsClasspath []string `mapstructure:"spotbugs_classpath" yaml:"spotbugs_classpath"`
	PluginClasspath   []string `mapstructure:"plugin_classpath" yaml:"plugin_classpath"`
	SourceDirs        []string `mapstructure:"source_dirs" yaml:"source_dirs"`
	Source            []string `mapstructure:"source" yaml:"source"`

	Effort         string `mapstructure:"effort" yaml:"effort"`
	ReportLevel    string `mapstructure:"report_level" yaml:"report_level"`
	MaxHeapSize    string `mapstructure:"max_heap_size" yaml:"max_heap_size"`
	ShowProgress   bool   `mapstructure:"show_progress" yaml:"show_progress"`
	IgnoreFailures bool   `mapstructure:"ignore_failures" yaml:"ignore_failures"`

	Visitors     []string `mapstructure:"visitors" yaml:"visitors"`
	OmitVisitors []string `mapstructure:"omit_visitors" yaml:"omit_visitors"`

	IncludeFilter     FilterConfig `mapstructure:"include_filter" yaml:"include_filter"`
	ExcludeFilter     FilterConfig `mapstructure:"exclude_filter" yaml:"exclude_filter"`
	ExcludeBugsFilter FilterConfig `mapstructure:"exclude_bugs_filter" yaml:"exclude_bugs_filter"`

	ExtraArgs []string `mapstructure:"extra_args" yaml:"extra_args"`
	JVMArgs   []string `mapstructure:"jvm_args" yaml:"jvm_args"`
	// SystemProperties is a list rather than a map: viper folds map keys to
	// lower case and splits them on dots, which mangles property names.
	SystemProperties []PropertyConfig `mapstructure:"system_properties" yaml:"system_properties"`

	Reports map[string]ReportConfig `mapstructure:"reports" yaml:"reports"`
	// SummaryFile, when set, receives a JSON record of the run.
	SummaryFile string `mapstructure:"summary_file" yaml:"summary_file"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "spotbugs-runner")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Engine --
	v.SetDefault("engine.main_class", "edu.umd.cs.findbugs.FindBugs2")
	v.SetDefault("engine.working_dir", ".")
	v.SetDefault("engine.kill_grace", "0s")

	// -- Task --
	v.SetDefault("task.effort", task.EffortDefault)
	v.SetDefault("task.report_level", task.ReportLevelMedium)
	v.SetDefault("task.show_progress", false)
	v.SetDefault("task.ignore_failures", false)
	v.SetDefault("task.reports.xml.enabled", true)
	v.SetDefault("task.reports.xml.destination", filepath.Join("build", "reports", "spotbugs", "main.xml"))
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// JAVA_HOME is honored the same way the JDK tools do.
	_ = v.BindEnv("engine.java_home", "SPOTBUGS_ENGINE_JAVA_HOME", "JAVA_HOME")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(c.LoggerCfg.Level)); err != nil {
		return fmt.Errorf("logger.level %q is not a valid level", c.LoggerCfg.Level)
	}
	if c.LoggerCfg.Format != "console" && c.LoggerCfg.Format != "json" {
		return fmt.Errorf("logger.format must be 'console' or 'json'")
	}
	if c.EngineCfg.KillGrace < 0 {
		return fmt.Errorf("engine.kill_grace must not be negative")
	}
	if err := c.TaskCfg.Validate(); err != nil {
		return fmt.Errorf("task configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the parts of the task that can be judged without touching
// the filesystem. Value checks for effort and report level live with the
// spec builder.
func (t *TaskConfig) Validate() error {
	for name, f := range map[string]FilterConfig{
		"include_filter":      t.IncludeFilter,
		"exclude_filter":      t.ExcludeFilter,
		"exclude_bugs_filter": t.ExcludeBugsFilter,
	} {
		if f.File != "" && f.Content != "" {
			return fmt.Errorf("%s: file and content are mutually exclusive", name)
		}
	}
	for i, p := range t.SystemProperties {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("system_properties[%d] has no name", i)
		}
	}
	known := task.Names()
	for name, r := range t.Reports {
		if !contains(known, name) {
			return fmt.Errorf("unknown report %q, expected one of %s", name, strings.Join(known, ", "))
		}
		if r.Enabled && r.Destination == "" {
			return fmt.Errorf("report %q is enabled but has no destination", name)
		}
	}
	return nil
}

// ToModel converts the task section into a task.Model. Paths have "~"
// expanded; inline filters are materialized under scratchDir when resolved.
func (t TaskConfig) ToModel(scratchDir string) (*task.Model, error) {
	m := task.NewModel()
	var err error

	if m.Classes, err = expandAll(t.Classes); err != nil {
		return nil, err
	}
	if m.Classpath, err = expandAll(t.Classpath); err != nil {
		return nil, err
	}
	if m.SpotbugsClasspath, err = expandAll(t.SpotbugsClasspath); err != nil {
		return nil, err
	}
	if m.PluginClasspath, err = expandAll(t.PluginClasspath); err != nil {
		return nil, err
	}
	if m.SourceDirs, err = expandAll(t.SourceDirs); err != nil {
		return nil, err
	}
	if m.Source, err = expandAll(t.Source); err != nil {
		return nil, err
	}

	m.Effort = t.Effort
	m.ReportLevel = t.ReportLevel
	m.MaxHeapSize = t.MaxHeapSize
	m.ShowProgress = t.ShowProgress
	m.IgnoreFailures = t.IgnoreFailures
	m.Visitors = append(m.Visitors, t.Visitors...)
	m.OmitVisitors = append(m.OmitVisitors, t.OmitVisitors...)
	m.AddExtraArgs(t.ExtraArgs...)
	m.AddJVMArgs(t.JVMArgs...)
	for _, p := range t.SystemProperties {
		m.SetSystemProperty(p.Name, p.Value)
	}

	scratch, err := homedir.Expand(scratchDir)
	if err != nil {
		return nil, fmt.Errorf("failed to expand scratch directory: %w", err)
	}
	if m.IncludeFilter, err = filterResource("include", t.IncludeFilter, scratch); err != nil {
		return nil, err
	}
	if m.ExcludeFilter, err = filterResource("exclude", t.ExcludeFilter, scratch); err != nil {
		return nil, err
	}
	if m.ExcludeBugsFilter, err = filterResource("excludeBugs", t.ExcludeBugsFilter, scratch); err != nil {
		return nil, err
	}

	// Map iteration order is random; enable sinks in name order.
	names := make([]string, 0, len(t.Reports))
	for name := range t.Reports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rc := t.Reports[name]
		if !rc.Enabled {
			continue
		}
		dest, err := homedir.Expand(rc.Destination)
		if err != nil {
			return nil, fmt.Errorf("failed to expand destination of report %q: %w", name, err)
		}
		rep, err := m.Reports.Enable(name, dest)
		if err != nil {
			return nil, err
		}
		rep.WithMessages = rc.WithMessages
		rep.Stylesheet = rc.Stylesheet
	}
	return m, nil
}

func filterResource(name string, f FilterConfig, scratch string) (task.TextResource, error) {
	if f.empty() {
		return nil, nil
	}
	if f.Content != "" {
		return task.NewInlineResource(name, f.Content, scratch), nil
	}
	path, err := homedir.Expand(f.File)
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s filter path: %w", name, err)
	}
	return task.NewFileResource(path), nil
}

func expandAll(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		expanded, err := homedir.Expand(p)
		if err != nil {
			return nil, fmt.Errorf("failed to expand path %q: %w", p, err)
		}
		out = append(out, expanded)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
