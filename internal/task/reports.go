// File: internal/task/reports.go
package task

import "fmt"

// Report names understood by the engine's command line.
const (
	ReportXML   = "xml"
	ReportHTML  = "html"
	ReportText  = "text"
	ReportEmacs = "emacs"
	ReportSARIF = "sarif"
)

// reportOrder is the canonical order used whenever sinks are listed.
var reportOrder = []string{ReportXML, ReportHTML, ReportText, ReportEmacs, ReportSARIF}

// Report is a single named output sink.
type Report struct {
	Name        string
	Enabled     bool
	Destination string
	// WithMessages adds human readable messages to the xml report.
	WithMessages bool
	// Stylesheet selects a custom stylesheet for the html report.
	Stylesheet string
}

// Reports is the container of all known sinks, keyed by name.
type Reports struct {
	sinks map[string]*Report
}

// NewReports returns a container with every known sink present and disabled.
func NewReports() *Reports {
	r := &Reports{sinks: make(map[string]*Report, len(reportOrder))}
	for _, name := range reportOrder {
		r.sinks[name] = &Report{Name: name}
	}
	return r
}

// Get returns the named sink, or an error for names the engine doesn't know.
func (r *Reports) Get(name string) (*Report, error) {
	if r == nil || r.sinks == nil {
		return nil, fmt.Errorf("unknown report %q", name)
	}
	rep, ok := r.sinks[name]
	if !ok {
		return nil, fmt.Errorf("unknown report %q", name)
	}
	return rep, nil
}

// Enable turns a sink on and points it at destination.
func (r *Reports) Enable(name, destination string) (*Report, error) {
	rep, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	rep.Enabled = true
	rep.Destination = destination
	return rep, nil
}

// Enabled lists enabled sinks in canonical order.
func (r *Reports) Enabled() []Report {
	if r == nil {
		return nil
	}
	var out []Report
	for _, name := range reportOrder {
		if rep := r.sinks[name]; rep != nil && rep.Enabled {
			out = append(out, *rep)
		}
	}
	return out
}

// FirstEnabled returns the first enabled sink, or nil when none is enabled.
func (r *Reports) FirstEnabled() *Report {
	enabled := r.Enabled()
	if len(enabled) == 0 {
		return nil
	}
	first := enabled[0]
	return &first
}

// Names returns every known sink name in canonical order.
func Names() []string {
	return append([]string(nil), reportOrder...)
}
