// File: internal/spec/spec.go
// Description: The fully resolved, immutable description of one worker run.

package spec

import "github.com/xkilldash9x/spotbugs-runner/internal/task"

// Property is a single JVM system property handed to the worker.
type Property struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// Spec is produced once per run by Build and never changes afterwards. All
// accessors hand out copies.
type Spec struct {
	arguments        []string
	classes          []string
	effort           string
	reportLevel      string
	maxHeapSize      string
	debug            bool
	jvmArgs          []string
	systemProperties []Property
	includeFilter    string
	excludeFilter    string
	excludeBugs      string
	reports          []task.Report
	warnings         []string
}

// Arguments is the engine command line, classes last.
func (s *Spec) Arguments() []string { return clone(s.arguments) }

// Classes are the absolute paths being analyzed.
func (s *Spec) Classes() []string { return clone(s.classes) }

func (s *Spec) Effort() string      { return s.effort }
func (s *Spec) ReportLevel() string { return s.reportLevel }

// MaxHeapSize returns the configured heap ceiling and false when the engine
// default applies.
func (s *Spec) MaxHeapSize() (string, bool) {
	return s.maxHeapSize, s.maxHeapSize != ""
}

// Debug reports whether the run was built while debug logging was on.
func (s *Spec) Debug() bool { return s.debug }

func (s *Spec) JVMArgs() []string { return clone(s.jvmArgs) }

// SystemProperties are sorted by name.
func (s *Spec) SystemProperties() []Property {
	return append([]Property(nil), s.systemProperties...)
}

// Reports are the enabled sinks with absolute destinations.
func (s *Spec) Reports() []task.Report {
	return append([]task.Report(nil), s.reports...)
}

// ReportSinks returns the resolved sinks as a report container, so links to
// them point where the engine actually writes.
func (s *Spec) ReportSinks() *task.Reports {
	sinks := task.NewReports()
	for _, r := range s.reports {
		if dst, err := sinks.Get(r.Name); err == nil {
			*dst = r
		}
	}
	return sinks
}

// Warnings collects non fatal oddities found while building, e.g. a detector
// that was both included and omitted.
func (s *Spec) Warnings() []string { return clone(s.warnings) }

// View is a serializable snapshot of a Spec.
type View struct {
	Arguments        []string   `yaml:"arguments" json:"arguments"`
	Classes          []string   `yaml:"classes" json:"classes"`
	Effort           string     `yaml:"effort" json:"effort"`
	ReportLevel      string     `yaml:"report_level" json:"report_level"`
	MaxHeapSize      string     `yaml:"max_heap_size" json:"max_heap_size"`
	Debug            bool       `yaml:"debug" json:"debug"`
	JVMArgs          []string   `yaml:"jvm_args,omitempty" json:"jvm_args,omitempty"`
	SystemProperties []Property `yaml:"system_properties,omitempty" json:"system_properties,omitempty"`
	IncludeFilter    string     `yaml:"include_filter,omitempty" json:"include_filter,omitempty"`
	ExcludeFilter    string     `yaml:"exclude_filter,omitempty" json:"exclude_filter,omitempty"`
	ExcludeBugs      string     `yaml:"exclude_bugs_filter,omitempty" json:"exclude_bugs_filter,omitempty"`
	Reports          []string   `yaml:"reports,omitempty" json:"reports,omitempty"`
	Warnings         []string   `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// DefaultHeapLabel is what View shows when the engine picks the heap size.
const DefaultHeapLabel = "engine-default"

// View returns a snapshot suitable for printing or comparing.
func (s *Spec) View() View {
	heap := s.maxHeapSize
	if heap == "" {
		heap = DefaultHeapLabel
	}
	var reports []string
	for _, r := range s.reports {
		reports = append(reports, r.Name+"="+r.Destination)
	}
	return View{
		Arguments:        s.Arguments(),
		Classes:          s.Classes(),
		Effort:           s.effort,
		ReportLevel:      s.reportLevel,
		MaxHeapSize:      heap,
		Debug:            s.debug,
		JVMArgs:          s.JVMArgs(),
		SystemProperties: s.SystemProperties(),
		IncludeFilter:    s.includeFilter,
		ExcludeFilter:    s.excludeFilter,
		ExcludeBugs:      s.excludeBugs,
		Reports:          reports,
		Warnings:         s.Warnings(),
	}
}

func clone(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
