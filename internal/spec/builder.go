// File: internal/spec/builder.go
// Description: Turns a task model into the exact command line the engine runs with.

package spec

import (
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/spotbugs-runner/internal/failures"
	"github.com/xkilldash9x/spotbugs-runner/internal/task"
)

// Options carries run scoped inputs that are not part of the task model.
type Options struct {
	// Debug mirrors the logger level at the time of the run.
	Debug bool
	// BaseDir anchors relative paths. Empty means the process working directory.
	BaseDir string
}

var (
	validEfforts      = []string{task.EffortMin, task.EffortDefault, task.EffortMax}
	validReportLevels = []string{task.ReportLevelExperimental, task.ReportLevelLow, task.ReportLevelMedium, task.ReportLevelHigh}
)

// reportFlags maps sink names to the engine's output format switches. The
// engine has no text switch; -sortByClass is its plain text format.
var reportFlags = map[string]string{
	task.ReportXML:   "-xml",
	task.ReportHTML:  "-html",
	task.ReportText:  "-sortByClass",
	task.ReportEmacs: "-emacs",
	task.ReportSARIF: "-sarif",
}

// Build validates the model and resolves it into a Spec. The same model and
// options always produce an identical Spec.
func Build(model *task.Model, opts Options) (*Spec, error) {
	if !model.HasClasses() {
		return nil, failures.New(failures.ErrNoClasses, "no classes to analyze", nil)
	}

	base, err := baseDir(opts.BaseDir)
	if err != nil {
		return nil, failures.New(failures.ErrResourceResolution, "failed to resolve the base directory", err)
	}

	effort, err := oneOf("effort", model.Effort, task.EffortDefault, validEfforts)
	if err != nil {
		return nil, err
	}
	reportLevel, err := oneOf("reportLevel", model.ReportLevel, task.ReportLevelMedium, validReportLevels)
	if err != nil {
		return nil, err
	}

	classes := absPaths(base, model.Classes)
	if len(classes) == 0 {
		return nil, failures.New(failures.ErrNoClasses, "no classes to analyze", nil)
	}

	s := &Spec{
		effort:      effort,
		reportLevel: reportLevel,
		maxHeapSize: strings.TrimSpace(model.MaxHeapSize),
		debug:       opts.Debug,
		classes:     classes,
		jvmArgs:     clone(model.JVMArgs),
	}
	s.systemProperties = sortedProperties(model.SystemProperties)

	for _, r := range model.Reports.Enabled() {
		if strings.TrimSpace(r.Destination) == "" {
			return nil, failures.Newf(failures.ErrInvalidConfiguration, "report %q is enabled but has no destination", r.Name)
		}
		r.Destination = absPath(base, r.Destination)
		s.reports = append(s.reports, r)
	}

	visitors, omitted := uniq(model.Visitors), uniq(model.OmitVisitors)
	var kept []string
	for _, v := range visitors {
		if slices.Contains(omitted, v) {
			s.warnings = append(s.warnings, fmt.Sprintf("detector %s is both included and omitted; omitting it", v))
			continue
		}
		kept = append(kept, v)
	}

	if s.excludeFilter, err = resolveFilter(base, "exclude", model.ExcludeFilter, "FindBugsFilter"); err != nil {
		return nil, err
	}
	if s.includeFilter, err = resolveFilter(base, "include", model.IncludeFilter, "FindBugsFilter"); err != nil {
		return nil, err
	}
	if s.excludeBugs, err = resolveFilter(base, "excludeBugs", model.ExcludeBugsFilter, "BugCollection", "FindBugsFilter"); err != nil {
		return nil, err
	}

	args := []string{
		"-pluginList", joinPaths(absPaths(base, model.PluginClasspath)),
		"-sortByClass",
		"-timestampNow",
	}
	if model.ShowProgress {
		args = append(args, "-progress")
	}
	args = append(args, reportArgs(s.reports)...)
	if src := absPaths(base, model.AllSource()); len(src) > 0 {
		args = append(args, "-sourcepath", joinPaths(src))
	}
	if aux := absPaths(base, model.Classpath); len(aux) > 0 {
		args = append(args, "-auxclasspath", joinPaths(aux))
	}
	args = append(args, "-effort:"+effort, "-"+reportLevel)
	if len(kept) > 0 {
		args = append(args, "-visitors", strings.Join(kept, ","))
	}
	if len(omitted) > 0 {
		args = append(args, "-omitVisitors", strings.Join(omitted, ","))
	}
	if s.excludeFilter != "" {
		args = append(args, "-exclude", s.excludeFilter)
	}
	if s.includeFilter != "" {
		args = append(args, "-include", s.includeFilter)
	}
	if s.excludeBugs != "" {
		args = append(args, "-excludeBugs", s.excludeBugs)
	}
	args = append(args, model.ExtraArgs...)
	args = append(args, s.classes...)
	s.arguments = args

	return s, nil
}

func oneOf(property, value, def string, allowed []string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return def, nil
	}
	if !slices.Contains(allowed, v) {
		return "", failures.Newf(failures.ErrInvalidConfiguration,
			"invalid value for SpotBugs '%s' property: %s (expected one of %s)", property, value, strings.Join(allowed, ", "))
	}
	return v, nil
}

// reportArgs renders the sinks. A single sink keeps the classic
// -<fmt> -outputFile pair; several sinks each get -<fmt>=<dest>.
func reportArgs(reports []task.Report) []string {
	switch len(reports) {
	case 0:
		return nil
	case 1:
		return []string{formatFlag(reports[0]), "-outputFile", reports[0].Destination}
	}
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		out = append(out, formatFlag(r)+"="+r.Destination)
	}
	return out
}

func formatFlag(r task.Report) string {
	flag := reportFlags[r.Name]
	switch {
	case r.Name == task.ReportXML && r.WithMessages:
		flag += ":withMessages"
	case r.Name == task.ReportHTML && r.Stylesheet != "":
		flag += ":" + r.Stylesheet
	}
	return flag
}

func resolveFilter(base, name string, res task.TextResource, roots ...string) (string, error) {
	if res == nil {
		return "", nil
	}
	// Relative filter files live under the base directory like every other path.
	if f, ok := res.(*task.FileResource); ok && f.Path != "" && !filepath.IsAbs(f.Path) {
		res = task.NewFileResource(absPath(base, f.Path))
	}
	path, err := res.AsFile()
	if err != nil {
		return "", failures.New(failures.ErrResourceResolution,
			fmt.Sprintf("failed to resolve the %s filter %s", name, res.Describe()), err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", failures.New(failures.ErrResourceResolution,
			fmt.Sprintf("failed to resolve the %s filter %s", name, res.Describe()), err)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromFile(abs); err != nil {
		return "", failures.New(failures.ErrResourceResolution,
			fmt.Sprintf("the %s filter %s is not valid XML", name, abs), err)
	}
	root := doc.Root()
	if root == nil || !slices.Contains(roots, root.Tag) {
		got := "<none>"
		if root != nil {
			got = root.Tag
		}
		return "", failures.Newf(failures.ErrResourceResolution,
			"the %s filter %s has root element %s, expected %s", name, abs, got, strings.Join(roots, " or "))
	}
	return abs, nil
}

func sortedProperties(props map[string]any) []Property {
	if len(props) == 0 {
		return nil
	}
	out := make([]Property, 0, len(props))
	for k, v := range props {
		out = append(out, Property{Name: k, Value: fmt.Sprint(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func baseDir(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}

func absPath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// absPaths drops blank entries, anchors the rest and keeps the first
// occurrence of each.
func absPaths(base string, paths []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		abs := absPath(base, p)
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}

func uniq(in []string) []string {
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func joinPaths(paths []string) string {
	return strings.Join(paths, string(filepath.ListSeparator))
}
