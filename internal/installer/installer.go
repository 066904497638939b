// Package installer runs a complete install of a formula: environment
// discovery, dependency check, tool bootstrap, the per-target build and the
// post-install guidance.
package installer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ecell/ecellbrew/formula"
	"github.com/ecell/ecellbrew/internal/bootstrap"
	"github.com/ecell/ecellbrew/internal/build"
	"github.com/ecell/ecellbrew/internal/config"
	"github.com/ecell/ecellbrew/internal/deps"
	"github.com/ecell/ecellbrew/internal/env"
	"github.com/ecell/ecellbrew/internal/guidance"
	"github.com/ecell/ecellbrew/internal/locate"
	"github.com/ecell/ecellbrew/internal/receipt"
	"github.com/ecell/ecellbrew/internal/runner"
	"github.com/ecell/ecellbrew/internal/ui"
	"github.com/rs/zerolog"
)

// BuildTool is the tool whose directory is added to PATH for every phase.
const BuildTool = "cython"

// EnvError reports a host environment problem found before anything is built.
type EnvError struct {
	Step string
	Err  error
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *EnvError) Unwrap() error {
	return e.Err
}

type Installer struct {
	Config *config.Config
	Runner runner.Runner

	// Locator finds BuildTool. Nil builds one from Config.
	Locator locate.Locator

	// Receipts records every run. Nil disables receipts and Resume.
	Receipts *receipt.Store

	LockFile string

	// Resume skips targets installed by the latest failed run.
	Resume bool

	// BasePath is the ambient PATH. Empty reads $PATH.
	BasePath string

	Out   io.Writer
	Stdin io.Reader
	Log   zerolog.Logger
}

// Report summarises an install.
type Report struct {
	RunID         string
	Formula       string
	Version       string
	Prefix        string
	PythonVersion string
	Shell         string
	Targets       []string
	Resumed       []string
	Tools         []bootstrap.Outcome
	Results       []build.Result
	Duration      time.Duration
}

// session holds what every operation discovers before acting.
type session struct {
	formula       *formula.Formula
	targets       []formula.Target
	prefix        string
	pythonVersion string
}

func (in *Installer) out() io.Writer {
	if in.Out == nil {
		return io.Discard
	}
	return in.Out
}

// discover detects the interpreter version, loads the recipe and selects the
// targets.
func (in *Installer) discover(ctx context.Context) (*session, error) {
	cfg := in.Config
	pyver, err := env.DetectPythonVersion(ctx, in.Runner, cfg.Python)
	if err != nil {
		return nil, &EnvError{Step: "detect python version", Err: err}
	}
	in.Log.Debug().Str("python", cfg.Python).Str("version", pyver).Msg("detected interpreter")

	vars := formula.Vars{Prefix: cfg.Prefix, HomebrewPrefix: cfg.HomebrewPrefix, PythonVersion: pyver}
	f, err := in.LoadFormula(vars)
	if err != nil {
		return nil, err
	}
	prefix := cfg.Prefix
	if prefix == "" {
		// The keg path depends on the recipe version and ${prefix} may
		// appear in the recipe, so decode again with it.
		prefix = Keg(cfg.HomebrewPrefix, f)
		vars.Prefix = prefix
		if f, err = in.LoadFormula(vars); err != nil {
			return nil, err
		}
	}

	targets, err := f.Select(cfg.Enable)
	if err != nil {
		return nil, err
	}
	if err := formula.CheckOrder(targets); err != nil {
		return nil, err
	}
	return &session{formula: f, targets: targets, prefix: prefix, pythonVersion: pyver}, nil
}

// LoadFormula decodes the recipe named by Config.Formula, or the built-in
// E-Cell 4 recipe when none is configured.
func (in *Installer) LoadFormula(vars formula.Vars) (*formula.Formula, error) {
	path := in.Config.Formula
	if path == "" {
		return formula.Load(vars)
	}
	f, err := formula.LoadFile(path, vars)
	if err != nil {
		return nil, &config.Error{Path: path, Err: err}
	}
	return f, nil
}

// sitePackages is the directory the selected bindings are imported from.
func (s *session) sitePackages() string {
	if s.formula.PythonPath != "" {
		return s.formula.PythonPath
	}
	return env.SitePackages(s.prefix, s.pythonVersion)
}

// buildEnv is the environment of every build phase.
func (in *Installer) buildEnv(s *session, toolDir string) env.Context {
	return env.BuildContext(in.basePath(), s.prefix, s.pythonVersion, toolDir).
		With(env.PythonPath, s.sitePackages())
}

// Keg returns the default install prefix of f below a Homebrew prefix.
func Keg(homebrewPrefix string, f *formula.Formula) string {
	return filepath.Join(homebrewPrefix, "Cellar", f.Name, f.Version)
}

func (in *Installer) basePath() string {
	if in.BasePath != "" {
		return in.BasePath
	}
	return os.Getenv(env.Path)
}

func (in *Installer) locator() locate.Locator {
	if in.Locator != nil {
		return in.Locator
	}
	return NewLocator(in.Config, in.Runner)
}

// Install runs the whole install. Guidance is printed once, after every
// target has been installed. Every step after discovery is recorded in a
// receipt.
func (in *Installer) Install(ctx context.Context) (*Report, error) {
	start := time.Now()
	s, err := in.discover(ctx)
	if err != nil {
		return nil, err
	}
	rep := &Report{
		Formula:       s.formula.Name,
		Version:       s.formula.Version,
		Prefix:        s.prefix,
		PythonVersion: s.pythonVersion,
		Shell:         in.Config.Shell,
		Targets:       formula.Names(s.targets),
	}

	// Read before this run's receipt exists.
	installed, err := in.resumable(s)
	if err != nil {
		return rep, err
	}
	for _, t := range s.targets {
		if installed[t.Name] {
			rep.Resumed = append(rep.Resumed, t.Name)
		}
	}

	var rec build.Recorder
	if in.Receipts != nil {
		run, err := in.Receipts.BeginRun(s.formula.Name, s.formula.Version, s.prefix, strings.Join(rep.Targets, ","))
		if err != nil {
			return rep, err
		}
		rep.RunID = run.ID
		rec = runRecorder{store: in.Receipts, runID: run.ID}
	}

	err = in.install(ctx, s, rep, installed, rec)
	rep.Duration = time.Since(start)
	if rep.RunID != "" {
		if ferr := in.Receipts.FinishRun(rep.RunID, err); ferr != nil {
			in.Log.Warn().Err(ferr).Str("run", rep.RunID).Msg("failed to finish receipt")
		}
	}
	if err != nil {
		return rep, err
	}

	in.Log.Info().Str("prefix", s.prefix).Int("targets", len(rep.Results)).Dur("duration", rep.Duration).Msg("install completed")
	if err := guidance.Render(in.out(), in.guidance(s)); err != nil {
		return rep, err
	}
	return rep, nil
}

// install runs the dependency check, the bootstrap and the build.
func (in *Installer) install(ctx context.Context, s *session, rep *Report, installed map[string]bool, rec build.Recorder) error {
	cfg := in.Config
	if cfg.SkipDependencyCheck {
		in.Log.Info().Msg("dependency check skipped")
	} else {
		checker := &deps.Checker{Runner: in.Runner, Brew: cfg.Brew}
		if err := checker.Check(ctx, s.formula.Deps); err != nil {
			return err
		}
	}

	probe, skipped := s.formula.ToolsFor(s.targets)
	boot := &bootstrap.Bootstrapper{
		Runner: in.Runner,
		Out:    ui.New(in.out()),
		Log:    in.Log.With().Str("component", "bootstrap").Logger(),
		Stdin:  in.Stdin,
		Sudo:   cfg.Sudo,
	}
	var err error
	rep.Tools, err = boot.Run(ctx, probe, skipped)
	if err != nil {
		return err
	}

	// Located after the bootstrap so a freshly installed tool is found.
	loc, err := in.locator().Locate(ctx, BuildTool)
	if err != nil {
		return &EnvError{Step: "locate " + BuildTool, Err: err}
	}
	in.Log.Debug().Str("tool", BuildTool).Str("path", loc.Path).Msg("located build tool")

	b := &build.Builder{
		Runner:    in.Runner,
		Root:      cfg.Root,
		Prefix:    s.prefix,
		Env:       in.buildEnv(s, loc.Dir()),
		LockFile:  in.LockFile,
		Installed: installed,
		Recorder:  rec,
		Log:       in.Log.With().Str("component", "build").Logger(),
		Stdout:    in.out(),
		Stderr:    in.out(),
	}
	rep.Results, err = b.Build(ctx, s.targets)
	return err
}

func (in *Installer) guidance(s *session) guidance.Guidance {
	return guidance.Guidance{
		Shell:          in.Config.Shell,
		HomebrewPrefix: in.Config.HomebrewPrefix,
		PythonVersion:  s.pythonVersion,
	}
}

// Guidance prints the post-install guidance without installing anything.
func (in *Installer) Guidance(ctx context.Context) error {
	pyver, err := env.DetectPythonVersion(ctx, in.Runner, in.Config.Python)
	if err != nil {
		return &EnvError{Step: "detect python version", Err: err}
	}
	return guidance.Render(in.out(), in.guidance(&session{pythonVersion: pyver}))
}

// resumable returns the targets whose install phase succeeded in the
// unbroken chain of failed or unfinished runs with the same prefix that
// precedes now. A successful run ends the chain. It is empty unless Resume
// is set.
func (in *Installer) resumable(s *session) (map[string]bool, error) {
	if !in.Resume || in.Receipts == nil {
		return nil, nil
	}
	runs, err := in.Receipts.Runs(s.formula.Name, 0)
	if err != nil {
		return nil, err
	}
	done := map[string]bool{}
	var chain []string
	for _, run := range runs {
		if run.Status == receipt.StatusSuccess || run.Prefix != s.prefix {
			break
		}
		phases, err := in.Receipts.Phases(run.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range phases {
			if p.Phase == string(build.Install) && p.Status == receipt.StatusSuccess {
				done[p.Target] = true
			}
		}
		chain = append(chain, run.ID)
	}
	if len(chain) == 0 {
		in.Log.Info().Msg("nothing to resume")
		return nil, nil
	}
	in.Log.Info().Strs("runs", chain).Int("installed", len(done)).Msg("resuming failed runs")
	return done, nil
}

type runRecorder struct {
	store *receipt.Store
	runID string
}

func (r runRecorder) RecordPhase(target, phase string, err error, d time.Duration) error {
	return r.store.RecordPhase(r.runID, target, phase, err, d)
}

// ImportError reports a binding module that failed to import.
type ImportError struct {
	Module string
	Output string
	Err    error
}

func (e *ImportError) Error() string {
	msg := fmt.Sprintf("import %s failed: %v", e.Module, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Test imports the Python module of every selected binding target with
// PYTHONPATH pointing into the install prefix. The first failing import is
// returned.
func (in *Installer) Test(ctx context.Context) error {
	s, err := in.discover(ctx)
	if err != nil {
		return err
	}
	childEnv := env.Context{}.
		With(env.PythonPath, s.sitePackages()).
		Environ(os.Environ())

	p := ui.New(in.out())
	for _, t := range s.targets {
		if t.Import == "" {
			continue
		}
		p.Printf("Testing import %s...", t.Import)
		out, err := in.Runner.Output(ctx, runner.Cmd{
			Name: in.Config.Python,
			Args: []string{"-c", "import " + t.Import},
			Env:  childEnv,
		})
		if err != nil {
			p.Println(" " + p.Failed("failed"))
			return &ImportError{Module: t.Import, Output: string(out), Err: err}
		}
		p.Println(" ok")
	}
	return nil
}

// LatestRun returns the most recent receipt of formulaName and its phases.
func (in *Installer) LatestRun(formulaName string) (*receipt.Run, []receipt.Phase, error) {
	if in.Receipts == nil {
		return nil, nil, receipt.ErrNoRun
	}
	run, err := in.Receipts.LatestRun(formulaName)
	if err != nil {
		return nil, nil, err
	}
	phases, err := in.Receipts.Phases(run.ID)
	if err != nil {
		return nil, nil, err
	}
	return run, phases, nil
}
