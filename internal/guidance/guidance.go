// Package guidance prints the shell startup line users need to make the
// installed Python bindings importable.
package guidance

import (
	"fmt"
	"io"

	"github.com/ecell/ecellbrew/internal/env"
)

// ShellKind is the syntax family of a login shell.
type ShellKind int

const (
	Bourne ShellKind = iota
	Csh
)

// KindOf classifies a shell name. Only "tcsh" and "csh" use C-shell syntax.
func KindOf(shell string) ShellKind {
	switch shell {
	case "tcsh", "csh":
		return Csh
	}
	return Bourne
}

func (k ShellKind) String() string {
	if k == Csh {
		return "csh"
	}
	return "bourne"
}

type Guidance struct {
	// Shell is the bare shell name, e.g. "zsh".
	Shell          string
	HomebrewPrefix string
	PythonVersion  string
}

// Line returns the quoted startup-file line for g's shell.
func (g Guidance) Line() string {
	site := env.SitePackages(g.HomebrewPrefix, g.PythonVersion)
	if KindOf(g.Shell) == Csh {
		return fmt.Sprintf("'setenv %s $%s:%s'", env.PythonPath, env.PythonPath, site)
	}
	return fmt.Sprintf("'export %s=$%s:%s'", env.PythonPath, env.PythonPath, site)
}

// RCFile is the startup file named in the message, e.g. ".zshrc". Without a
// shell name it is a generic description.
func (g Guidance) RCFile() string {
	if g.Shell == "" {
		return "shell startup file"
	}
	return "." + g.Shell + "rc"
}

// Render writes the three-line guidance block.
func Render(w io.Writer, g Guidance) error {
	_, err := fmt.Fprintf(w, "Remember to add\n%s\ninto your %s\n", g.Line(), g.RCFile())
	return err
}
