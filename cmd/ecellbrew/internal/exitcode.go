package internal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ecell/ecellbrew/formula"
	"github.com/ecell/ecellbrew/internal/bootstrap"
	"github.com/ecell/ecellbrew/internal/build"
	"github.com/ecell/ecellbrew/internal/config"
	"github.com/ecell/ecellbrew/internal/deps"
	"github.com/ecell/ecellbrew/internal/installer"
	"github.com/ecell/ecellbrew/internal/locate"
	"github.com/spf13/cobra"
)

// Exit codes returned by the ecellbrew CLI.
const (
	ExitSuccess = 0

	// ExitFailure indicates a failed build phase or post-install test.
	ExitFailure = 1

	// ExitConfigError indicates an invalid config file, flag or target name.
	ExitConfigError = 2

	// ExitEnvError indicates a host problem: a missing dependency or tool, a
	// failed bootstrap or another install holding the lock.
	ExitEnvError = 3
)

type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// noArgs rejects positional arguments as a usage error. On a command with
// subcommands the argument is reported as an unknown command.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if !cmd.HasSubCommands() {
		return &usageError{err: fmt.Errorf("%q accepts no arguments, got %q", cmd.CommandPath(), args[0])}
	}
	msg := fmt.Sprintf("unknown command %q for %q", args[0], cmd.CommandPath())
	if suggestions := cmd.SuggestionsFor(args[0]); len(suggestions) > 0 {
		msg += "\n\nDid you mean this?\n\t" + strings.Join(suggestions, "\n\t")
	}
	return &usageError{err: errors.New(msg)}
}

// ExitCode maps an error returned by a command to an exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		ue  *usageError
		ce  *config.Error
		ute *formula.UnknownTargetError
		oe  *formula.OrderError
		ee  *installer.EnvError
		me  *deps.MissingError
		ie  *bootstrap.InstallError
		nfe *locate.NotFoundError
	)
	switch {
	case errors.As(err, &ue), errors.As(err, &ce), errors.As(err, &ute), errors.As(err, &oe):
		return ExitConfigError
	case errors.As(err, &ee), errors.As(err, &me), errors.As(err, &ie), errors.As(err, &nfe),
		errors.Is(err, build.ErrLocked):
		return ExitEnvError
	}
	return ExitFailure
}
