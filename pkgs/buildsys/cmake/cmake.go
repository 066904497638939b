package cmake

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/ecell/ecellbrew/internal/env"
	"github.com/ecell/ecellbrew/pkgs/buildsys"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake wraps common CMake build steps with chainable configuration.
type CMake struct {
	opts       buildsys.Options
	SourceDir  string
	buildDir   string
	installDir string
	generator  string
	buildType  string
	Defines    map[string]defineValue
	env        env.Context
}

var _ buildsys.BuildSystem = (*CMake)(nil)

// New creates a CMake helper for sourceDir. Builds happen out of tree in
// sourceDir/build.
func New(opts buildsys.Options, sourceDir string) *CMake {
	return &CMake{
		opts:      opts,
		SourceDir: sourceDir,
		buildDir:  filepath.Join(sourceDir, "build"),
		Defines:   map[string]defineValue{},
	}
}

func (c *CMake) Source(dir string) {
	c.SourceDir = dir
}

func (c *CMake) InstallDir(dir string) {
	c.installDir = dir
}

// BuildDir overrides the out-of-tree build directory.
func (c *CMake) BuildDir(dir string) *CMake {
	c.buildDir = dir
	return c
}

func (c *CMake) Generator(name string) *CMake {
	c.generator = name
	return c
}

func (c *CMake) BuildType(name string) *CMake {
	c.buildType = name
	return c
}

func (c *CMake) Define(key, value string) *CMake {
	if c.Defines == nil {
		c.Defines = map[string]defineValue{}
	}
	c.Defines[key] = defineValue{value: value, typeName: "STRING"}
	return c
}

func (c *CMake) DefineBool(key string, value bool) *CMake {
	if c.Defines == nil {
		c.Defines = map[string]defineValue{}
	}
	if value {
		c.Defines[key] = defineValue{value: "ON", typeName: "BOOL"}
		return c
	}
	c.Defines[key] = defineValue{value: "OFF", typeName: "BOOL"}
	return c
}

func (c *CMake) Env(key, value string) {
	c.env = c.env.With(key, value)
}

func (c *CMake) Configure(ctx context.Context, args ...string) error {
	if err := os.MkdirAll(c.buildDir, 0755); err != nil {
		return err
	}
	cmakeArgs := []string{"-S", c.SourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.installDir != "" {
		c.Define("CMAKE_INSTALL_PREFIX", c.installDir)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	cmakeArgs = append(cmakeArgs, args...)

	return c.run(ctx, cmakeArgs)
}

func (c *CMake) Build(ctx context.Context, args ...string) error {
	cmdArgs := []string{"--build", c.buildDir}
	if c.buildType != "" {
		cmdArgs = append(cmdArgs, "--config", c.buildType)
	}
	cmdArgs = append(cmdArgs, args...)
	return c.run(ctx, cmdArgs)
}

func (c *CMake) Install(ctx context.Context, args ...string) error {
	cmdArgs := []string{"--install", c.buildDir}
	if c.installDir != "" {
		cmdArgs = append(cmdArgs, "--prefix", c.installDir)
	}
	cmdArgs = append(cmdArgs, args...)
	return c.run(ctx, cmdArgs)
}

// OutputDir returns the install dir if set, otherwise the build dir.
func (c *CMake) OutputDir() string {
	if c.installDir != "" {
		return c.installDir
	}
	return c.buildDir
}

func (c *CMake) definesArgs() []string {
	if len(c.Defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Defines))
	for k := range c.Defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		def := c.Defines[k]
		if def.typeName != "" {
			args = append(args, "-D"+k+":"+def.typeName+"="+def.value)
			continue
		}
		args = append(args, "-D"+k+"="+def.value)
	}
	return args
}

func (c *CMake) run(ctx context.Context, args []string) error {
	return c.opts.Runner.Run(ctx, c.opts.Command("cmake", args, c.SourceDir, c.env))
}
