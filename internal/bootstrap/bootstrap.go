// Package bootstrap makes sure the Python tools a build needs are present,
// installing missing ones after warning the user.
package bootstrap

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ecell/ecellbrew/formula"
	"github.com/ecell/ecellbrew/internal/runner"
	"github.com/ecell/ecellbrew/internal/ui"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
)

// Status is the result of probing one tool.
type Status int

const (
	Found Status = iota
	Installed
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case Installed:
		return "installed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Outcome records what happened to one tool.
type Outcome struct {
	Tool   string
	Status Status
	Err    error
}

// InstallError reports a tool whose install command failed.
type InstallError struct {
	Tool string
	Cmd  string
	Err  error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("missing prerequisite %s: %s failed: %v", e.Tool, e.Cmd, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Bootstrapper probes and installs tools.
type Bootstrapper struct {
	Runner runner.Runner
	Out    *ui.Printer
	Log    zerolog.Logger

	// Stdin is attached to install commands so privilege prompts work.
	Stdin io.Reader

	// Sudo replaces a leading "sudo" in install commands. Empty keeps it.
	Sudo string

	// Env is the child environment for probes and installs. Nil inherits.
	Env []string
}

// Run probes every tool in order, then reports skipped ones. The first
// install failure of a tool not marked best effort stops the run.
func (b *Bootstrapper) Run(ctx context.Context, tools, skipped []formula.Tool) ([]Outcome, error) {
	var outcomes []Outcome
	for _, tool := range tools {
		o, err := b.Ensure(ctx, tool)
		outcomes = append(outcomes, o)
		if err != nil {
			return outcomes, err
		}
	}
	for _, tool := range skipped {
		b.Out.Printf("Looking for %s...", tool.Name)
		b.Out.Println(" skipped")
		outcomes = append(outcomes, Outcome{Tool: tool.Name, Status: Skipped})
	}
	return outcomes, nil
}

// Ensure probes one tool and installs it when absent.
func (b *Bootstrapper) Ensure(ctx context.Context, tool formula.Tool) (Outcome, error) {
	b.Out.Printf("Looking for %s...", tool.Name)
	present, err := b.Present(ctx, tool)
	if err != nil {
		b.Log.Debug().Err(err).Str("tool", tool.Name).Msg("probe failed, treating tool as absent")
	}
	if present {
		b.Out.Println(" found")
		return Outcome{Tool: tool.Name, Status: Found}, nil
	}
	b.Out.Println(" not found")
	b.warn(tool)

	install := b.installCommand(tool)
	b.Log.Info().Str("tool", tool.Name).Str("command", install.String()).Msg("installing tool")
	if err := b.Runner.Run(ctx, install); err != nil {
		ierr := &InstallError{Tool: tool.Name, Cmd: install.String(), Err: err}
		if tool.BestEffort {
			b.Log.Warn().Err(ierr).Msg("best-effort install failed, continuing")
			return Outcome{Tool: tool.Name, Status: Failed, Err: ierr}, nil
		}
		return Outcome{Tool: tool.Name, Status: Failed, Err: ierr}, ierr
	}
	return Outcome{Tool: tool.Name, Status: Installed}, nil
}

// Present reports whether tool is already installed.
func (b *Bootstrapper) Present(ctx context.Context, tool formula.Tool) (bool, error) {
	switch tool.Probe {
	case formula.ProbeWhich:
		path, err := b.Runner.LookPath(tool.Name)
		if err != nil {
			return false, err
		}
		return len(path) > 1, nil
	case formula.ProbeFreeze:
		via := tool.Via
		if via == "" {
			via = "pip"
		}
		out, err := b.Runner.Output(ctx, runner.Cmd{Name: via, Args: []string{"freeze"}, Env: b.Env})
		if err != nil {
			return false, err
		}
		return CountMatches(out, tool.Name) > 0, nil
	}
	return false, fmt.Errorf("unknown probe %q for %s", tool.Probe, tool.Name)
}

// CountMatches counts the lines of a freeze listing that contain name,
// ignoring case.
func CountMatches(listing []byte, name string) int {
	fold := cases.Fold()
	needle := fold.String(name)
	n := 0
	sc := bufio.NewScanner(bytes.NewReader(listing))
	for sc.Scan() {
		if strings.Contains(fold.String(sc.Text()), needle) {
			n++
		}
	}
	return n
}

func (b *Bootstrapper) installCommand(tool formula.Tool) runner.Cmd {
	argv := b.sudo(tool.Install)
	return runner.Cmd{
		Name:   argv[0],
		Args:   argv[1:],
		Env:    b.Env,
		Stdin:  b.Stdin,
		Stdout: b.Out.Writer(),
		Stderr: b.Out.Writer(),
	}
}

func (b *Bootstrapper) sudo(argv []string) []string {
	if b.Sudo == "" || len(argv) == 0 || argv[0] != "sudo" {
		return argv
	}
	out := append([]string{b.Sudo}, argv[1:]...)
	return out
}

func (b *Bootstrapper) warn(tool formula.Tool) {
	p := b.Out
	p.Println()
	p.Println(p.Warning())
	p.Printf("We are trying to install %s into your environment\n", p.Tool(tool.Name))
	p.Println("If you do not wish for homebrew to perform this task, exit")
	p.Printf("and install %s by performing\n", tool.Name)
	p.Printf("\n  $ %s\n", strings.Join(b.sudo(tool.Install), " "))
	if len(tool.UserInstall) > 0 {
		p.Println("\nor if you are not root")
		p.Printf("\n  $ %s\n", strings.Join(tool.UserInstall, " "))
	}
	p.Println("\nIf you wish to proceed, enter root password")
}
