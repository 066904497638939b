package internal

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ecell/ecellbrew/formula"
	"github.com/ecell/ecellbrew/internal/bootstrap"
	"github.com/ecell/ecellbrew/internal/build"
	"github.com/ecell/ecellbrew/internal/config"
	"github.com/ecell/ecellbrew/internal/deps"
	"github.com/ecell/ecellbrew/internal/installer"
	"github.com/ecell/ecellbrew/internal/locate"
	"github.com/ecell/ecellbrew/internal/receipt"
	"github.com/spf13/pflag"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"phase", &build.PhaseError{Target: "core", Phase: build.Build, Err: errors.New("exit status 1")}, ExitFailure},
		{"import", &installer.ImportError{Module: "ecell4.core", Err: errors.New("exit status 1")}, ExitFailure},
		{"plain", errors.New("boom"), ExitFailure},
		{"config", &config.Error{Path: "c.toml", Err: errors.New("bad")}, ExitConfigError},
		{"usage", &usageError{err: errors.New("unknown flag: --prfix")}, ExitConfigError},
		{"unknown target", &formula.UnknownTargetError{Names: []string{"meso"}}, ExitConfigError},
		{"order", &formula.OrderError{Target: "bd_python", DependsOn: "bd", Missing: true}, ExitConfigError},
		{"missing deps", &deps.MissingError{Missing: []formula.Dependency{{Name: "gsl"}}}, ExitEnvError},
		{"bootstrap", &bootstrap.InstallError{Tool: "pip", Cmd: "sudo easy_install pip", Err: errors.New("exit status 1")}, ExitEnvError},
		{"tool", &installer.EnvError{Step: "locate cython", Err: &locate.NotFoundError{Tool: "cython"}}, ExitEnvError},
		{"locked", fmt.Errorf("%w (lock held)", build.ErrLocked), ExitEnvError},
		{"wrapped", fmt.Errorf("install: %w", &deps.MissingError{}), ExitEnvError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestApplyFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var o options
	registerFlags(fs, &o)
	err := fs.Parse([]string{
		"--prefix=/opt/ecell4",
		"--formula=/src/ecell4-dev.hcl",
		"--enable=egfrd,egfrd_python",
		"--shell=/bin/tcsh",
		"--skip-deps",
		"-vv",
	})
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{Python: "python3", Root: "/src", HomebrewPrefix: "/usr/local"}
	o.apply(fs, cfg)

	if cfg.Prefix != "/opt/ecell4" {
		t.Errorf("Prefix = %q", cfg.Prefix)
	}
	if cfg.Formula != "/src/ecell4-dev.hcl" {
		t.Errorf("Formula = %q", cfg.Formula)
	}
	if strings.Join(cfg.Enable, ",") != "egfrd,egfrd_python" {
		t.Errorf("Enable = %v", cfg.Enable)
	}
	if cfg.Shell != "tcsh" {
		t.Errorf("Shell = %q, want tcsh", cfg.Shell)
	}
	if !cfg.SkipDependencyCheck {
		t.Error("SkipDependencyCheck not set")
	}
	if o.verbosity != 2 {
		t.Errorf("verbosity = %d, want 2", o.verbosity)
	}
	// Flags left unset keep the file values.
	if cfg.Python != "python3" || cfg.Root != "/src" || cfg.HomebrewPrefix != "/usr/local" {
		t.Errorf("unset flags overrode config: %+v", cfg)
	}
}

func TestPrintStatus(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := &receipt.Run{
		ID:         "run-1",
		Formula:    "ecell4",
		Version:    "4",
		Prefix:     "/usr/local/Cellar/ecell4/4",
		Status:     receipt.StatusFailed,
		Error:      "failed to build core: build: exit status 1",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
	}
	phases := []receipt.Phase{
		{Target: "core", Phase: "configure", Status: receipt.StatusSuccess, Duration: 2 * time.Second},
		{Target: "core", Phase: "build", Status: receipt.StatusFailed, Duration: 88 * time.Second},
	}
	var b strings.Builder
	printStatus(&b, run, phases)
	out := b.String()

	for _, want := range []string{
		"ecell4 4: failed\n",
		"run:     run-1\n",
		"took:    1m30s\n",
		"error:   failed to build core: build: exit status 1\n",
		"core",
		"1m28s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"install": false, "test": false, "plan": false, "status": false, "guidance": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, ok := range want {
		if !ok {
			t.Errorf("command %s not registered", name)
		}
	}
	if installCmd.Flags().Lookup("resume") == nil {
		t.Error("install has no --resume flag")
	}
}

func TestUnknownCommandIsUsageError(t *testing.T) {
	rootCmd.SetArgs([]string{"instal"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	if got := ExitCode(err); got != ExitConfigError {
		t.Fatalf("ExitCode(%v) = %d, want %d", err, got, ExitConfigError)
	}
	if !strings.Contains(err.Error(), `unknown command "instal" for "ecellbrew"`) {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "\tinstall") {
		t.Errorf("no suggestion in: %v", err)
	}
}

func TestNoArgs(t *testing.T) {
	if err := noArgs(installCmd, nil); err != nil {
		t.Errorf("noArgs(nil) = %v", err)
	}
	err := noArgs(installCmd, []string{"extra"})
	if got := ExitCode(err); got != ExitConfigError {
		t.Errorf("ExitCode(%v) = %d, want %d", err, got, ExitConfigError)
	}
}
