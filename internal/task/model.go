// File: internal/task/model.go
// Description: The configuration model of the analysis task. It is plain data:
// nothing here validates, resolves or touches the filesystem.

package task

import (
	"slices"
	"strings"
)

// Effort levels accepted by the engine.
const (
	EffortMin     = "min"
	EffortDefault = "default"
	EffortMax     = "max"
)

// Report levels accepted by the engine, lowest threshold first.
const (
	ReportLevelExperimental = "experimental"
	ReportLevelLow          = "low"
	ReportLevelMedium       = "medium"
	ReportLevelHigh         = "high"
)

// Model holds every user settable knob of an analysis run. It is owned by the
// caller and must not be mutated once a run has started consuming it.
type Model struct {
	// Classes are the compiled artifacts to analyze. An empty set skips the run.
	Classes []string
	// Classpath is used for symbol resolution only; nothing on it is analyzed.
	Classpath []string
	// SpotbugsClasspath holds the engine and its dependencies.
	SpotbugsClasspath []string
	// PluginClasspath holds optional engine extensions.
	PluginClasspath []string
	// SourceDirs and Source are used only to map findings back to source lines.
	SourceDirs []string
	Source     []string

	Effort         string
	ReportLevel    string
	MaxHeapSize    string
	ShowProgress   bool
	IgnoreFailures bool

	// Visitors are detectors to run, OmitVisitors detectors to skip.
	Visitors     []string
	OmitVisitors []string

	IncludeFilter     TextResource
	ExcludeFilter     TextResource
	ExcludeBugsFilter TextResource

	// ExtraArgs and JVMArgs are passed through verbatim and in order.
	ExtraArgs []string
	JVMArgs   []string

	SystemProperties map[string]any

	Reports *Reports
}

// NewModel returns a model with empty collections and all report sinks disabled.
func NewModel() *Model {
	return &Model{
		SystemProperties: make(map[string]any),
		Reports:          NewReports(),
	}
}

// AddExtraArgs appends engine arguments.
func (m *Model) AddExtraArgs(args ...string) *Model {
	m.ExtraArgs = append(m.ExtraArgs, args...)
	return m
}

// AddJVMArgs appends arguments for the worker JVM.
func (m *Model) AddJVMArgs(args ...string) *Model {
	m.JVMArgs = append(m.JVMArgs, args...)
	return m
}

// SetSystemProperty sets a single system property for the worker.
func (m *Model) SetSystemProperty(name string, value any) *Model {
	if m.SystemProperties == nil {
		m.SystemProperties = make(map[string]any)
	}
	m.SystemProperties[name] = value
	return m
}

// SetSystemProperties merges props into the existing system properties.
func (m *Model) SetSystemProperties(props map[string]any) *Model {
	for k, v := range props {
		m.SetSystemProperty(k, v)
	}
	return m
}

// SetIncludeFilterFile points the include filter at an existing file.
func (m *Model) SetIncludeFilterFile(path string) *Model {
	m.IncludeFilter = NewFileResource(path)
	return m
}

// SetExcludeFilterFile points the exclude filter at an existing file.
func (m *Model) SetExcludeFilterFile(path string) *Model {
	m.ExcludeFilter = NewFileResource(path)
	return m
}

// SetExcludeBugsFilterFile points the baseline filter at an existing file.
func (m *Model) SetExcludeBugsFilterFile(path string) *Model {
	m.ExcludeBugsFilter = NewFileResource(path)
	return m
}

// AllSource is the union of source directories and individual source files,
// directories first.
func (m *Model) AllSource() []string {
	out := make([]string, 0, len(m.SourceDirs)+len(m.Source))
	out = append(out, m.SourceDirs...)
	return append(out, m.Source...)
}

// HasClasses reports whether there is anything to analyze. Blank entries,
// as left by an empty flag or environment value, do not count.
func (m *Model) HasClasses() bool {
	if m == nil {
		return false
	}
	return slices.ContainsFunc(m.Classes, func(c string) bool { return strings.TrimSpace(c) != "" })
}
