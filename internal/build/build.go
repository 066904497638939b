package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ecell/ecellbrew/formula"
	"github.com/ecell/ecellbrew/internal/env"
	"github.com/ecell/ecellbrew/internal/runner"
	"github.com/ecell/ecellbrew/pkgs/buildsys"
	"github.com/ecell/ecellbrew/pkgs/buildsys/autotools"
	"github.com/ecell/ecellbrew/pkgs/buildsys/cmake"
	"github.com/ecell/ecellbrew/pkgs/buildsys/waf"
	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
)

// Phase is one step of a target build.
type Phase string

const (
	Configure Phase = "configure"
	Build     Phase = "build"
	Install   Phase = "install"
)

// Phases lists the phases in execution order.
var Phases = []Phase{Configure, Build, Install}

// ErrLocked is returned when another install holds the lock.
var ErrLocked = errors.New("another install is in progress")

// PhaseError reports the target and phase that stopped the build.
type PhaseError struct {
	Target string
	Phase  Phase
	Err    error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("failed to build %s: %s: %v", e.Target, e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// Recorder receives the outcome of every phase.
type Recorder interface {
	RecordPhase(target, phase string, err error, d time.Duration) error
}

// Result is the outcome of one completed target.
type Result struct {
	Target    string
	OutputDir string
	Duration  time.Duration
}

type Builder struct {
	Runner runner.Runner

	// Root is the unpacked source tree; each target builds in Root/<dir>.
	Root string

	// Prefix is the install destination handed to every configure phase.
	Prefix string

	// Env is the environment every phase runs with.
	Env env.Context

	// LockFile guards against concurrent installs. Empty disables locking.
	LockFile string

	// Installed names targets finished by an earlier run. They still count
	// for the order check but are not rebuilt.
	Installed map[string]bool

	Recorder Recorder
	Log      zerolog.Logger
	Stdout   io.Writer
	Stderr   io.Writer
}

// Build runs configure, build and install for each target in order. The
// first failing phase aborts the remaining phases and targets; targets
// already installed are left in place.
func (b *Builder) Build(ctx context.Context, targets []formula.Target) ([]Result, error) {
	if err := formula.CheckOrder(targets); err != nil {
		return nil, err
	}

	if b.LockFile != "" {
		unlock, err := lock(b.LockFile)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	root, err := filepath.Abs(b.Root)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(targets))
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if b.Installed[target.Name] {
			fmt.Fprintf(b.stdout(), "Skipping %s (already installed)\n", target.Name)
			continue
		}
		res, err := b.buildTarget(ctx, root, target)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (b *Builder) buildTarget(ctx context.Context, root string, target formula.Target) (Result, error) {
	fmt.Fprintf(b.stdout(), "Building %s...\n", target.Name)

	dir := filepath.Join(root, target.Directory())
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return Result{}, b.fail(target.Name, Configure, fmt.Errorf("source directory %s not found", dir))
	}

	bs, err := NewSystem(target, dir, b.Prefix, buildsys.Options{
		Runner: b.Runner,
		Env:    b.Env,
		Stdout: b.Stdout,
		Stderr: b.Stderr,
	})
	if err != nil {
		return Result{}, b.fail(target.Name, Configure, err)
	}

	log := b.Log.With().Str("target", target.Name).Logger()
	start := time.Now()
	for _, phase := range Phases {
		phaseStart := time.Now()
		var err error
		switch phase {
		case Configure:
			err = bs.Configure(ctx, target.ConfigureArgs...)
		case Build:
			err = bs.Build(ctx)
		case Install:
			err = bs.Install(ctx)
		}
		d := time.Since(phaseStart)
		b.record(target.Name, phase, err, d)
		if err != nil {
			log.Error().Err(err).Str("phase", string(phase)).Msg("phase failed")
			return Result{}, &PhaseError{Target: target.Name, Phase: phase, Err: err}
		}
		log.Debug().Str("phase", string(phase)).Dur("duration", d).Msg("phase completed")
	}
	return Result{Target: target.Name, OutputDir: bs.OutputDir(), Duration: time.Since(start)}, nil
}

// NewSystem returns the build system helper for target, building in dir and
// installing into prefix.
func NewSystem(target formula.Target, dir, prefix string, opts buildsys.Options) (buildsys.BuildSystem, error) {
	var bs buildsys.BuildSystem
	switch target.System() {
	case formula.Waf:
		bs = waf.New(opts, dir)
	case formula.CMake:
		bs = cmake.New(opts, dir)
	case formula.Autotools:
		at := autotools.New(opts, dir)
		// Earlier targets installed their headers and libraries into prefix.
		at.Use(prefix)
		bs = at
	default:
		return nil, fmt.Errorf("unknown build system %q", target.System())
	}
	bs.InstallDir(prefix)
	return bs, nil
}

// fail records a phase that failed before any command ran.
func (b *Builder) fail(target string, phase Phase, err error) error {
	b.record(target, phase, err, 0)
	return &PhaseError{Target: target, Phase: phase, Err: err}
}

func (b *Builder) stdout() io.Writer {
	if b.Stdout == nil {
		return io.Discard
	}
	return b.Stdout
}

func (b *Builder) record(target string, phase Phase, err error, d time.Duration) {
	if b.Recorder == nil {
		return
	}
	if rerr := b.Recorder.RecordPhase(target, string(phase), err, d); rerr != nil {
		b.Log.Warn().Err(rerr).Msg("failed to record phase")
	}
}

func lock(path string) (unlock func(), err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s held by another process)", ErrLocked, path)
	}
	return func() { _ = fl.Unlock() }, nil
}
