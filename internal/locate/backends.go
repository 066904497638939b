package locate

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ecell/ecellbrew/internal/runner"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
)

// PathLocator resolves tools through PATH.
type PathLocator struct {
	Runner runner.Runner
}

func (p PathLocator) Locate(_ context.Context, name string) (Location, error) {
	path, err := p.Runner.LookPath(name)
	if err != nil || path == "" {
		return Location{Name: name}, &NotFoundError{Tool: name}
	}
	return Location{Name: name, Path: path}, nil
}

// IndexLocator queries the OS file index (Spotlight's mdfind on macOS) and
// keeps the first result that lives in a bin directory.
type IndexLocator struct {
	Runner  runner.Runner
	Command string // defaults to "mdfind"
}

func (x IndexLocator) Locate(ctx context.Context, name string) (Location, error) {
	command := x.Command
	if command == "" {
		command = "mdfind"
	}
	out, err := x.Runner.Output(ctx, runner.Cmd{Name: command, Args: []string{"-name", name}})
	if err != nil {
		return Location{Name: name}, fmt.Errorf("file index query for %s: %w", name, err)
	}
	if p := firstBinMatch(out, name); p != "" {
		return Location{Name: name, Path: p}, nil
	}
	return Location{Name: name}, &NotFoundError{Tool: name}
}

func firstBinMatch(out []byte, name string) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.Contains(line, "/bin/") {
			continue
		}
		if filepath.Base(line) != name {
			continue
		}
		return line
	}
	return ""
}

// GlobLocator walks Roots looking for <root>/**/bin/<name> and returns the
// first executable match. Roots are searched in order.
type GlobLocator struct {
	Roots []string
}

func (g GlobLocator) Locate(_ context.Context, name string) (Location, error) {
	pattern := "**/bin/" + name
	for _, root := range g.Roots {
		root = expandHome(root)
		if _, err := os.Stat(root); err != nil {
			continue
		}
		var hit string
		err := doublestar.GlobWalk(os.DirFS(root), pattern, func(p string, d fs.DirEntry) error {
			full := filepath.Join(root, filepath.FromSlash(p))
			if !isExecutable(full) {
				return nil
			}
			hit = full
			return errStop
		})
		if err != nil && !errors.Is(err, errStop) {
			log.Debug().Err(err).Str("root", root).Msg("glob search stopped")
		}
		if hit != "" {
			return Location{Name: name, Path: hit}, nil
		}
	}
	return Location{Name: name}, &NotFoundError{Tool: name}
}

var errStop = errors.New("stop walk")

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
