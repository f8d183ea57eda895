// File: internal/classpath/validator.go
// Description: Fails fast when the SpotBugs build on the engine classpath needs
// a newer Java than the one the worker is going to run on.

package classpath

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/xkilldash9x/spotbugs-runner/internal/failures"
)

// Rule states the minimum Java feature release for engines at or above MinEngine.
type Rule struct {
	MinEngine    string // semver with a leading "v"
	RequiredJava int
}

// DefaultRules is checked top down; the first rule whose MinEngine is met applies.
var DefaultRules = []Rule{
	{MinEngine: "v4.9.0", RequiredJava: 11},
	{MinEngine: "v3.1.0", RequiredJava: 8},
}

// engineJar matches the engine artifact itself and not its siblings
// (spotbugs-annotations-x.jar, spotbugs-ant-x.jar).
var engineJar = regexp.MustCompile(`^spotbugs-(\d[^/\\]*)\.jar$`)

// IncompatibilityError names the artifact that can't run on the current platform.
type IncompatibilityError struct {
	Artifacts     []string
	EngineVersion string
	Required      int
	Actual        Platform
	Inspected     []string
}

func (e *IncompatibilityError) Error() string {
	if e.EngineVersion == "" {
		return fmt.Sprintf("unable to infer the version of SpotBugs from the SpotBugs classpath: %v", e.Inspected)
	}
	return fmt.Sprintf(
		"the version of SpotBugs (%s) inferred from %s requires Java %d or newer, but the worker would run on Java %s; use a lower version of SpotBugs or a newer JVM",
		e.EngineVersion, strings.Join(e.Artifacts, ", "), e.Required, e.Actual,
	)
}

func (e *IncompatibilityError) Unwrap() error { return failures.ErrClasspathIncompatibility }

// Validator checks an engine classpath against a fixed platform.
type Validator struct {
	platform Platform
	rules    []Rule
}

// NewValidator returns a validator for the given platform using DefaultRules.
func NewValidator(platform Platform) *Validator {
	return &Validator{platform: platform, rules: DefaultRules}
}

// WithRules replaces the compatibility table.
func (v *Validator) WithRules(rules []Rule) *Validator {
	v.rules = rules
	return v
}

// Validate takes the file names (or paths) on the resolved engine classpath.
// It returns nil when the combination is known to work.
func (v *Validator) Validate(fileNames []string) error {
	artifact, version := engineVersion(fileNames)
	if version == "" {
		return &IncompatibilityError{Actual: v.platform, Inspected: baseNames(fileNames)}
	}

	sv := "v" + version
	if !semver.IsValid(sv) {
		return &IncompatibilityError{Actual: v.platform, Inspected: baseNames(fileNames)}
	}
	// Pre-releases are judged by the release they lead up to.
	core := strings.TrimSuffix(semver.Canonical(sv), semver.Prerelease(sv))

	for _, rule := range v.rules {
		if semver.Compare(core, rule.MinEngine) < 0 {
			continue
		}
		if v.platform.Major < rule.RequiredJava {
			return &IncompatibilityError{
				Artifacts:     []string{artifact},
				EngineVersion: version,
				Required:      rule.RequiredJava,
				Actual:        v.platform,
				Inspected:     baseNames(fileNames),
			}
		}
		return nil
	}
	return nil
}

func engineVersion(fileNames []string) (artifact, version string) {
	for _, f := range fileNames {
		base := filepath.Base(f)
		if m := engineJar.FindStringSubmatch(base); m != nil {
			return base, m[1]
		}
	}
	return "", ""
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

// LazyValidator defers platform detection until a classpath is actually
// checked, so runs that are skipped never have to start java.
type LazyValidator struct {
	detect func() (Platform, error)
	rules  []Rule
}

// NewLazyValidator wraps a platform detector.
func NewLazyValidator(detect func() (Platform, error)) *LazyValidator {
	return &LazyValidator{detect: detect, rules: DefaultRules}
}

// Validate detects the platform and then behaves like Validator.Validate.
func (l *LazyValidator) Validate(fileNames []string) error {
	platform, err := l.detect()
	if err != nil {
		return failures.New(failures.ErrClasspathIncompatibility, "unable to determine the Java version the worker would run on", err)
	}
	return NewValidator(platform).WithRules(l.rules).Validate(fileNames)
}
