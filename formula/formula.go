package formula

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
)

//go:embed ecell4.hcl
var ecell4 []byte

// Probe kinds understood by the bootstrapper.
const (
	ProbeWhich  = "which"
	ProbeFreeze = "freeze"
)

// Build systems a target may use.
const (
	Waf       = "waf"
	CMake     = "cmake"
	Autotools = "autotools"
)

// -----------------------------------------------------------------------------

// Formula is the install recipe of a package.
type Formula struct {
	Name     string `hcl:"name,label"`
	Desc     string `hcl:"desc,optional"`
	Homepage string `hcl:"homepage"`
	URL      string `hcl:"url"`
	SHA1     string `hcl:"sha1,optional"`
	Version  string `hcl:"version"`

	// PythonPath is the site-packages directory the bindings install into.
	// Empty means <prefix>/lib/python<version>/site-packages.
	PythonPath string `hcl:"python_path,optional"`

	Deps    []Dependency `hcl:"depends_on,block"`
	Tools   []Tool       `hcl:"tool,block"`
	Targets []Target     `hcl:"target,block"`
}

// Dependency is a system library the host package manager must provide.
type Dependency struct {
	Name    string   `hcl:"name,label"`
	Options []string `hcl:"options,optional"`
}

// Tool is a Python-ecosystem prerequisite installed on demand.
type Tool struct {
	Name  string `hcl:"name,label"`
	Probe string `hcl:"probe"`

	// Via is the package installer queried by freeze probes.
	Via string `hcl:"via,optional"`

	Install     []string `hcl:"install"`
	UserInstall []string `hcl:"user_install,optional"`

	// OnDemand tools are only probed when a selected target requires them.
	OnDemand   bool `hcl:"on_demand,optional"`
	BestEffort bool `hcl:"best_effort,optional"`
}

// Target is one independently buildable sub-module.
type Target struct {
	Name          string   `hcl:"name,label"`
	Dir           string   `hcl:"dir,optional"`
	BuildSystem   string   `hcl:"build_system,optional"`
	DependsOn     []string `hcl:"depends_on,optional"`
	Requires      []string `hcl:"requires,optional"`
	Optional      bool     `hcl:"optional,optional"`
	Import        string   `hcl:"import,optional"`
	ConfigureArgs []string `hcl:"configure_args,optional"`
}

// Directory returns the sub-directory holding the target's sources.
func (t Target) Directory() string {
	if t.Dir != "" {
		return t.Dir
	}
	return t.Name
}

// System returns the target's build system, waf by default.
func (t Target) System() string {
	if t.BuildSystem != "" {
		return t.BuildSystem
	}
	return Waf
}

// -----------------------------------------------------------------------------

// Vars are the values visible to expressions in a recipe.
type Vars struct {
	Prefix         string
	HomebrewPrefix string
	PythonVersion  string
}

func (v Vars) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"prefix":          cty.StringVal(v.Prefix),
			"homebrew_prefix": cty.StringVal(v.HomebrewPrefix),
			"python_version":  cty.StringVal(v.PythonVersion),
		},
	}
}

type file struct {
	Formula Formula `hcl:"formula,block"`
}

// Load decodes the built-in E-Cell 4 recipe.
func Load(vars Vars) (*Formula, error) {
	return Parse("ecell4.hcl", ecell4, vars)
}

// LoadFile decodes the recipe at path. The ".hcl" or ".json" suffix selects
// the syntax.
func LoadFile(path string, vars Vars) (*Formula, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read formula: %w", err)
	}
	return Parse(path, src, vars)
}

// Parse decodes and validates a recipe. filename selects the syntax and is
// used in diagnostics.
func Parse(filename string, src []byte, vars Vars) (*Formula, error) {
	var f file
	if err := hclsimple.Decode(filename, src, vars.evalContext(), &f); err != nil {
		return nil, fmt.Errorf("failed to decode formula %s: %w", filename, err)
	}
	if err := f.Formula.Validate(); err != nil {
		return nil, err
	}
	return &f.Formula, nil
}

// Validate checks names are unique and every reference resolves.
func (f *Formula) Validate() error {
	var errs []error
	tools := map[string]bool{}
	for _, t := range f.Tools {
		if tools[t.Name] {
			errs = append(errs, fmt.Errorf("tool %q declared twice", t.Name))
		}
		tools[t.Name] = true
		if t.Probe != ProbeWhich && t.Probe != ProbeFreeze {
			errs = append(errs, fmt.Errorf("tool %q: unknown probe %q", t.Name, t.Probe))
		}
		if len(t.Install) == 0 {
			errs = append(errs, fmt.Errorf("tool %q: empty install command", t.Name))
		}
	}
	targets := map[string]bool{}
	for _, t := range f.Targets {
		if targets[t.Name] {
			errs = append(errs, fmt.Errorf("target %q declared twice", t.Name))
		}
		targets[t.Name] = true
		if s := t.System(); s != Waf && s != CMake && s != Autotools {
			errs = append(errs, fmt.Errorf("target %q: unknown build system %q", t.Name, s))
		}
		for _, r := range t.Requires {
			if !tools[r] {
				errs = append(errs, fmt.Errorf("target %q requires undeclared tool %q", t.Name, r))
			}
		}
	}
	for _, t := range f.Targets {
		for _, d := range t.DependsOn {
			if !targets[d] {
				errs = append(errs, fmt.Errorf("target %q depends on undeclared target %q", t.Name, d))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid formula %s: %w", f.Name, errors.Join(errs...))
	}
	return nil
}

// Tool returns the tool named name.
func (f *Formula) Tool(name string) (Tool, bool) {
	for _, t := range f.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Target returns the target named name.
func (f *Formula) Target(name string) (Target, bool) {
	for _, t := range f.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return Target{}, false
}

// Required reports whether any of targets requires the tool.
func Required(tool string, targets []Target) bool {
	for _, t := range targets {
		if slices.Contains(t.Requires, tool) {
			return true
		}
	}
	return false
}
