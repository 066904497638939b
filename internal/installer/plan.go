package installer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/ecell/ecellbrew/formula"
	"github.com/ecell/ecellbrew/internal/build"
	"github.com/ecell/ecellbrew/internal/env"
	"github.com/ecell/ecellbrew/internal/runner"
	"github.com/ecell/ecellbrew/pkgs/buildsys"
)

// Plan is what an install would do.
type Plan struct {
	Formula       string
	Version       string
	Prefix        string
	PythonVersion string
	Shell         string

	// BuildTool is the located build tool, empty when it is not installed yet.
	BuildTool string

	Deps    []formula.Dependency
	Probe   []string
	Skipped []string
	Env     env.Context
	Targets []PlannedTarget
}

type PlannedTarget struct {
	Name     string
	Dir      string
	Commands []string
}

// Plan discovers the environment and lists the commands of every phase
// without running any build, install or bootstrap command.
func (in *Installer) Plan(ctx context.Context) (*Plan, error) {
	s, err := in.discover(ctx)
	if err != nil {
		return nil, err
	}
	p := &Plan{
		Formula:       s.formula.Name,
		Version:       s.formula.Version,
		Prefix:        s.prefix,
		PythonVersion: s.pythonVersion,
		Shell:         in.Config.Shell,
		Deps:          s.formula.Deps,
	}
	probe, skipped := s.formula.ToolsFor(s.targets)
	for _, t := range probe {
		p.Probe = append(p.Probe, t.Name)
	}
	for _, t := range skipped {
		p.Skipped = append(p.Skipped, t.Name)
	}

	var toolDir string
	if loc, err := in.locator().Locate(ctx, BuildTool); err == nil {
		p.BuildTool = loc.Path
		toolDir = loc.Dir()
	} else {
		in.Log.Debug().Err(err).Msg("build tool not located yet")
	}
	p.Env = in.buildEnv(s, toolDir)

	root, err := filepath.Abs(in.Config.Root)
	if err != nil {
		return nil, err
	}
	for _, t := range s.targets {
		dir := filepath.Join(root, t.Directory())
		rec := &recorder{}
		bs, err := build.NewSystem(t, dir, s.prefix, buildsys.Options{Runner: rec, Env: p.Env, Base: []string{}})
		if err != nil {
			return nil, err
		}
		if err := bs.Configure(ctx, t.ConfigureArgs...); err != nil {
			return nil, err
		}
		if err := bs.Build(ctx); err != nil {
			return nil, err
		}
		if err := bs.Install(ctx); err != nil {
			return nil, err
		}
		p.Targets = append(p.Targets, PlannedTarget{Name: t.Name, Dir: dir, Commands: rec.lines})
	}
	return p, nil
}

// Print writes p in a human readable form.
func (p *Plan) Print(w io.Writer) {
	fmt.Fprintf(w, "%s %s -> %s\n", p.Formula, p.Version, p.Prefix)
	fmt.Fprintf(w, "python %s, shell %s\n", p.PythonVersion, p.Shell)
	if p.BuildTool == "" {
		fmt.Fprintf(w, "%s: not found yet\n", BuildTool)
	} else {
		fmt.Fprintf(w, "%s: %s\n", BuildTool, p.BuildTool)
	}
	fmt.Fprintln(w, "\nDependencies:")
	for _, d := range p.Deps {
		fmt.Fprintf(w, "  %s\n", d.Name)
	}
	fmt.Fprintln(w, "\nTools:")
	for _, t := range p.Probe {
		fmt.Fprintf(w, "  %s\n", t)
	}
	for _, t := range p.Skipped {
		fmt.Fprintf(w, "  %s (skipped)\n", t)
	}
	fmt.Fprintln(w, "\nEnvironment:")
	for _, k := range p.Env.Keys() {
		v, _ := p.Env.Get(k)
		fmt.Fprintf(w, "  %s=%s\n", k, v)
	}
	fmt.Fprintln(w, "\nTargets:")
	for _, t := range p.Targets {
		fmt.Fprintf(w, "  %s (%s)\n", t.Name, t.Dir)
		for _, c := range t.Commands {
			fmt.Fprintf(w, "    $ %s\n", c)
		}
	}
}

// recorder is a runner.Runner that only records command lines.
type recorder struct {
	lines []string
}

func (r *recorder) Run(_ context.Context, cmd runner.Cmd) error {
	r.lines = append(r.lines, cmd.String())
	return nil
}

func (r *recorder) Output(_ context.Context, cmd runner.Cmd) ([]byte, error) {
	r.lines = append(r.lines, cmd.String())
	return nil, nil
}

func (r *recorder) LookPath(name string) (string, error) {
	return "", fmt.Errorf("%s: lookups are not recorded", name)
}
