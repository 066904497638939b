package autotools

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecell/ecellbrew/internal/env"
	"github.com/ecell/ecellbrew/pkgs/buildsys"
)

// AutoTools wraps the configure, make, make install sequence.
type AutoTools struct {
	opts       buildsys.Options
	SourceDir  string
	buildDir   string
	installDir string
	env        env.Context
}

var _ buildsys.BuildSystem = (*AutoTools)(nil)

// New creates an AutoTools helper building in sourceDir.
func New(opts buildsys.Options, sourceDir string) *AutoTools {
	return &AutoTools{opts: opts, SourceDir: sourceDir}
}

func (a *AutoTools) Source(dir string) {
	a.SourceDir = dir
}

func (a *AutoTools) InstallDir(dir string) {
	a.installDir = dir
}

// BuildDir selects an out-of-tree build directory.
func (a *AutoTools) BuildDir(dir string) *AutoTools {
	a.buildDir = dir
	return a
}

func (a *AutoTools) Env(key, value string) {
	a.env = a.env.With(key, value)
}

// Use points the compiler, linker and pkg-config at an install prefix that
// earlier targets were installed into. Missing directories are ignored.
func (a *AutoTools) Use(prefix string) {
	includeDir := filepath.Join(prefix, "include")
	libDir := filepath.Join(prefix, "lib")
	pkgconfigDir := filepath.Join(libDir, "pkgconfig")

	if isDir(pkgconfigDir) {
		a.env = a.env.PrependPath("PKG_CONFIG_PATH", pkgconfigDir)
	}
	if isDir(includeDir) {
		a.appendFlag("CPPFLAGS", "-I"+includeDir)
	}
	if isDir(libDir) {
		a.appendFlag("LDFLAGS", "-L"+libDir)
	}
}

func (a *AutoTools) dir() string {
	if a.buildDir != "" {
		return a.buildDir
	}
	return a.SourceDir
}

// Configure runs the source tree's configure script with --prefix.
func (a *AutoTools) Configure(ctx context.Context, args ...string) error {
	dir := a.dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	configArgs := []string{}
	if a.installDir != "" {
		configArgs = append(configArgs, "--prefix="+a.installDir)
	}
	configArgs = append(configArgs, args...)
	return a.run(ctx, filepath.Join(a.SourceDir, "configure"), configArgs)
}

// Build runs make, or the given command instead.
func (a *AutoTools) Build(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		args = []string{"make"}
	}
	return a.run(ctx, args[0], args[1:])
}

// Install runs make install, or the given command instead.
func (a *AutoTools) Install(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		args = []string{"make", "install"}
	}
	return a.run(ctx, args[0], args[1:])
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (a *AutoTools) OutputDir() string {
	if a.installDir != "" {
		return a.installDir
	}
	return a.dir()
}

func (a *AutoTools) run(ctx context.Context, bin string, args []string) error {
	return a.opts.Runner.Run(ctx, a.opts.Command(bin, args, a.dir(), a.env))
}

// appendFlag appends a flag to a space separated variable.
func (a *AutoTools) appendFlag(key, flag string) {
	cur, _ := a.env.Get(key)
	if cur == "" {
		if v, ok := a.opts.Env.Get(key); ok {
			cur = v
		}
	}
	a.env = a.env.With(key, strings.TrimSpace(cur+" "+flag))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
