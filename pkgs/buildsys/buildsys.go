package buildsys

import (
	"context"
	"io"
	"os"

	"github.com/ecell/ecellbrew/internal/env"
	"github.com/ecell/ecellbrew/internal/runner"
)

// BuildSystem captures shared capabilities of build helpers (waf, CMake).
// It keeps the common lifecycle and environment setup; implementations add
// their own extras.
type BuildSystem interface {
	// Basic paths.
	Source(dir string)
	InstallDir(dir string)

	// Environment helper. Overrides apply to this helper's children only.
	Env(key, val string)

	// Lifecycle.
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
	Install(ctx context.Context, args ...string) error

	// Where artifacts land.
	OutputDir() string
}

// Options are shared by every helper constructor.
type Options struct {
	Runner runner.Runner
	Env    env.Context

	// Base is the environment the overrides are merged into. Nil means the
	// current process environment.
	Base []string

	Stdout io.Writer
	Stderr io.Writer
}

// Command builds a runner.Cmd for bin running in dir with the helper's
// environment.
func (o Options) Command(bin string, args []string, dir string, overrides env.Context) runner.Cmd {
	base := o.Base
	if base == nil {
		base = os.Environ()
	}
	e := o.Env
	for _, k := range overrides.Keys() {
		v, _ := overrides.Get(k)
		e = e.With(k, v)
	}
	return runner.Cmd{
		Name:   bin,
		Args:   args,
		Dir:    dir,
		Env:    e.Environ(base),
		Stdout: o.Stdout,
		Stderr: o.Stderr,
	}
}
