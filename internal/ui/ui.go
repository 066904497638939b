// Package ui writes the user-facing progress lines of an install.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes progress to a terminal or any other writer. Styling is
// dropped automatically when the writer is not a color terminal.
type Printer struct {
	w       io.Writer
	warning lipgloss.Style
	tool    lipgloss.Style
	failed  lipgloss.Style
}

// New returns a Printer for w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:       w,
		warning: r.NewStyle().Foreground(lipgloss.Color("1")),
		tool:    r.NewStyle().Foreground(lipgloss.Color("2")),
		failed:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Print writes without a trailing newline.
func (p *Printer) Print(a ...any) {
	fmt.Fprint(p.w, a...)
}

// Println writes a line.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

// Printf writes formatted output.
func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.w, format, a...)
}

// Warning renders the word "Warning:" in the warning color.
func (p *Printer) Warning() string {
	return p.warning.Render("Warning:")
}

// Tool renders a tool name in the highlight color.
func (p *Printer) Tool(name string) string {
	return p.tool.Render(name)
}

// Failed renders a failure label.
func (p *Printer) Failed(s string) string {
	return p.failed.Render(s)
}
