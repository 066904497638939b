// Package deps checks that the system libraries a formula depends on are
// installed by the host package manager before anything is built.
package deps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ecell/ecellbrew/formula"
	"github.com/ecell/ecellbrew/internal/runner"
)

// MissingError lists every dependency the package manager does not have.
type MissingError struct {
	Missing []formula.Dependency
}

func (e *MissingError) Error() string {
	var b strings.Builder
	b.WriteString("missing dependencies, install them with:")
	for _, d := range e.Missing {
		b.WriteString("\n  brew install ")
		b.WriteString(InstallArgs(d))
	}
	return b.String()
}

// InstallArgs renders a dependency with its build flags, e.g.
// "hdf5 --enable-cxx".
func InstallArgs(d formula.Dependency) string {
	return strings.TrimSpace(d.Name + " " + strings.Join(d.Options, " "))
}

// Checker queries the host package manager.
type Checker struct {
	Runner runner.Runner

	// Brew is the package manager executable. Defaults to "brew".
	Brew string
}

// Installed reports whether dep is installed.
func (c *Checker) Installed(ctx context.Context, dep formula.Dependency) (bool, error) {
	brew := c.Brew
	if brew == "" {
		brew = "brew"
	}
	out, err := c.Runner.Output(ctx, runner.Cmd{Name: brew, Args: []string{"list", "--versions", dep.Name}})
	if err != nil {
		// brew exits non-zero for formulae that are not installed.
		var ee *runner.ExitError
		if errors.As(err, &ee) && ee.Code > 0 {
			return false, nil
		}
		return false, fmt.Errorf("failed to query %s for %s: %w", brew, dep.Name, err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// Check verifies every dependency once and returns a *MissingError naming all
// of the absent ones.
func (c *Checker) Check(ctx context.Context, deps []formula.Dependency) error {
	var missing []formula.Dependency
	for _, d := range deps {
		ok, err := c.Installed(ctx, d)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, d)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Missing: missing}
	}
	return nil
}
