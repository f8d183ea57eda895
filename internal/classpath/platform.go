// File: internal/classpath/platform.go
package classpath

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// execCommandContext is swapped out in tests.
var execCommandContext = exec.CommandContext

// Platform is the Java runtime the worker will run on.
type Platform struct {
	// Major is the feature release number, e.g. 8 for "1.8.0_292" and 17 for "17.0.2".
	Major int
	// Raw is the version string as reported by the runtime.
	Raw string
}

func (p Platform) String() string {
	if p.Raw == "" {
		return strconv.Itoa(p.Major)
	}
	return fmt.Sprintf("%d (%s)", p.Major, p.Raw)
}

var leadingDigits = regexp.MustCompile(`^\d+`)

// ParsePlatform normalizes a Java version string. The legacy "1.x" scheme maps
// to x, everything else takes the leading feature number.
func ParsePlatform(raw string) (Platform, error) {
	v := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"`))
	if v == "" {
		return Platform{}, fmt.Errorf("empty java version")
	}
	if strings.HasPrefix(v, "1.") {
		rest := v[2:]
		if m := leadingDigits.FindString(rest); m != "" {
			major, _ := strconv.Atoi(m)
			return Platform{Major: major, Raw: v}, nil
		}
	}
	m := leadingDigits.FindString(v)
	if m == "" {
		return Platform{}, fmt.Errorf("unrecognized java version %q", raw)
	}
	major, err := strconv.Atoi(m)
	if err != nil {
		return Platform{}, fmt.Errorf("unrecognized java version %q: %w", raw, err)
	}
	return Platform{Major: major, Raw: v}, nil
}

// DetectPlatform works out which Java version the worker will run on. The
// release file under javaHome is preferred since it needs no process; otherwise
// the java executable is asked directly.
func DetectPlatform(ctx context.Context, javaHome, javaExecutable string) (Platform, error) {
	if javaHome != "" {
		p, err := readReleaseFile(filepath.Join(javaHome, "release"))
		if err == nil {
			return p, nil
		}
		if javaExecutable == "" {
			javaExecutable = filepath.Join(javaHome, "bin", "java")
		}
	}
	if javaExecutable == "" {
		javaExecutable = "java"
	}

	cmd := execCommandContext(ctx, javaExecutable, "-version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return Platform{}, fmt.Errorf("failed to run %s -version: %w", javaExecutable, err)
	}
	return parseVersionOutput(out)
}

func readReleaseFile(path string) (Platform, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Platform{}, err
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if value, ok := strings.CutPrefix(line, "JAVA_VERSION="); ok {
			return ParsePlatform(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return Platform{}, err
	}
	return Platform{}, fmt.Errorf("no JAVA_VERSION entry in %s", path)
}

var versionLine = regexp.MustCompile(`version "([^"]+)"`)

// parseVersionOutput reads the first `version "x"` occurrence from java -version output.
func parseVersionOutput(out []byte) (Platform, error) {
	m := versionLine.FindSubmatch(out)
	if m == nil {
		return Platform{}, fmt.Errorf("could not find a version in java -version output: %q", strings.TrimSpace(string(out)))
	}
	return ParsePlatform(string(m[1]))
}
