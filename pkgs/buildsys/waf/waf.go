package waf

import (
	"context"
	"path/filepath"

	"github.com/ecell/ecellbrew/internal/env"
	"github.com/ecell/ecellbrew/pkgs/buildsys"
)

// Waf drives the waf script shipped at the root of a source tree. Each
// target lives in a sub-directory and is built with "../waf".
type Waf struct {
	opts       buildsys.Options
	SourceDir  string
	script     string
	installDir string
	env        env.Context
}

var _ buildsys.BuildSystem = (*Waf)(nil)

// New creates a waf helper for the target sources in sourceDir.
func New(opts buildsys.Options, sourceDir string) *Waf {
	return &Waf{
		opts:      opts,
		SourceDir: sourceDir,
	}
}

func (w *Waf) Source(dir string) {
	w.SourceDir = dir
}

func (w *Waf) InstallDir(dir string) {
	w.installDir = dir
}

// Script overrides the waf script location. By default it is the waf file in
// the parent of SourceDir.
func (w *Waf) Script(path string) *Waf {
	w.script = path
	return w
}

func (w *Waf) Env(key, value string) {
	w.env = w.env.With(key, value)
}

// ScriptPath returns the absolute path of the waf script that will be
// executed.
func (w *Waf) ScriptPath() string {
	p := w.script
	if p == "" {
		p = filepath.Join(filepath.Dir(w.SourceDir), "waf")
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Configure runs "waf configure" with the install prefix.
func (w *Waf) Configure(ctx context.Context, args ...string) error {
	wafArgs := []string{"configure"}
	if w.installDir != "" {
		wafArgs = append(wafArgs, "--prefix="+w.installDir)
	}
	wafArgs = append(wafArgs, args...)
	return w.run(ctx, wafArgs)
}

// Build runs "waf build".
func (w *Waf) Build(ctx context.Context, args ...string) error {
	return w.run(ctx, append([]string{"build"}, args...))
}

// Install runs "waf install".
func (w *Waf) Install(ctx context.Context, args ...string) error {
	return w.run(ctx, append([]string{"install"}, args...))
}

// OutputDir returns the install dir if set, otherwise the source dir.
func (w *Waf) OutputDir() string {
	if w.installDir != "" {
		return w.installDir
	}
	return w.SourceDir
}

func (w *Waf) run(ctx context.Context, args []string) error {
	return w.opts.Runner.Run(ctx, w.opts.Command(w.ScriptPath(), args, w.SourceDir, w.env))
}
