// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ecell/ecellbrew/internal/runner"
)

// Response is the scripted result of one command line.
type Response struct {
	Output string
	Err    error
}

// Fake records every command and answers from a script keyed by command line
// ("name arg1 arg2"). Unscripted commands succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	paths     map[string]string
	calls     []runner.Cmd
}

var _ runner.Runner = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		responses: map[string]Response{},
		paths:     map[string]string{},
	}
}

// On scripts the response for a command line.
func (f *Fake) On(cmdline string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[cmdline] = resp
	return f
}

// Path scripts the result of LookPath(name).
func (f *Fake) Path(name, path string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[name] = path
	return f
}

func (f *Fake) Run(ctx context.Context, cmd runner.Cmd) error {
	resp := f.record(cmd)
	if cmd.Stdout != nil && resp.Output != "" {
		_, _ = io.WriteString(cmd.Stdout, resp.Output)
	}
	return resp.Err
}

func (f *Fake) Output(ctx context.Context, cmd runner.Cmd) ([]byte, error) {
	resp := f.record(cmd)
	return []byte(resp.Output), resp.Err
}

func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("exec: %q: %w", name, errNotFound)
}

var errNotFound = errors.New("executable file not found in $PATH")

func (f *Fake) record(cmd runner.Cmd) Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	return f.responses[cmd.String()]
}

// Calls returns every command seen so far.
func (f *Fake) Calls() []runner.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]runner.Cmd, len(f.calls))
	copy(out, f.calls)
	return out
}

// Lines returns the command lines seen so far.
func (f *Fake) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Count returns how many recorded command lines start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			n++
		}
	}
	return n
}
