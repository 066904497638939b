package env

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/ecell/ecellbrew/internal/runner"
	"golang.org/x/mod/semver"
)

var versionRE = regexp.MustCompile(`\d+\.\d+\.\d+`)

// PythonVersion extracts the major.minor version from interpreter
// --version output, e.g. "Python 3.9.7" yields "3.9".
func PythonVersion(output string) (string, error) {
	triplet := versionRE.FindString(output)
	if triplet == "" {
		return "", fmt.Errorf("no version in interpreter output %q", strings.TrimSpace(output))
	}
	mm := semver.MajorMinor("v" + triplet)
	if mm == "" {
		return "", fmt.Errorf("invalid interpreter version %q", triplet)
	}
	return strings.TrimPrefix(mm, "v"), nil
}

// DetectPythonVersion runs "<python> --version" and parses its output.
// Python 2 prints the version on stderr, so combined output is used.
func DetectPythonVersion(ctx context.Context, r runner.Runner, python string) (string, error) {
	out, err := r.Output(ctx, runner.Cmd{Name: python, Args: []string{"--version"}})
	if err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", python, err)
	}
	return PythonVersion(string(out))
}

// ShellName returns the final path segment of a login shell path such as
// the value of $SHELL. An empty input yields "".
func ShellName(shell string) string {
	shell = strings.TrimSpace(shell)
	if shell == "" {
		return ""
	}
	return path.Base(shell)
}
