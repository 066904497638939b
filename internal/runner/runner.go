// Package runner abstracts subprocess execution so every external call made
// during an install returns an explicit error and can be replaced in tests.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Cmd describes one external command invocation.
type Cmd struct {
	Name string
	Args []string

	// Dir is the working directory of the child. Empty means the caller's.
	Dir string

	// Env is the complete child environment. Nil inherits the caller's.
	Env []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// String returns the command line as a shell would display it.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes commands and resolves executables.
type Runner interface {
	// Run executes cmd and waits for it. A non-zero exit is an error.
	Run(ctx context.Context, cmd Cmd) error

	// Output executes cmd and returns its combined stdout and stderr.
	Output(ctx context.Context, cmd Cmd) ([]byte, error)

	// LookPath searches PATH for an executable named name.
	LookPath(name string) (string, error)
}

// ExitError reports a command that ran but did not succeed.
type ExitError struct {
	Cmd  string
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Code >= 0 {
		return fmt.Sprintf("%s: exit status %d", e.Cmd, e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Exec runs commands with os/exec.
type Exec struct{}

var _ Runner = Exec{}

func (Exec) Run(ctx context.Context, c Cmd) error {
	cmd := command(ctx, c)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	return wrap(c, cmd.Run())
}

func (Exec) Output(ctx context.Context, c Cmd) ([]byte, error) {
	cmd := command(ctx, c)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.Bytes(), wrap(c, err)
}

func (Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func command(ctx context.Context, c Cmd) *exec.Cmd {
	log.Debug().
		Str("command", c.Name).
		Strs("args", c.Args).
		Str("dir", c.Dir).
		Msg("Executing command")

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = c.Env
	cmd.Stdin = c.Stdin
	return cmd
}

func wrap(c Cmd, err error) error {
	if err == nil {
		return nil
	}
	code := -1
	if ee, ok := err.(*exec.ExitError); ok {
		code = ee.ExitCode()
	}
	return &ExitError{Cmd: c.String(), Code: code, Err: err}
}
