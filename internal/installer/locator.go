package installer

import (
	"runtime"

	"github.com/ecell/ecellbrew/internal/config"
	"github.com/ecell/ecellbrew/internal/locate"
	"github.com/ecell/ecellbrew/internal/runner"
)

// DefaultRoots are searched by the glob backend when none are configured.
var DefaultRoots = []string{"~/Library/Python", "~/.local"}

// NewLocator builds the locator selected by cfg.Locator.Backend. The auto
// backend tries PATH, then the Spotlight index on macOS, then a glob search.
func NewLocator(cfg *config.Config, r runner.Runner) locate.Locator {
	path := locate.PathLocator{Runner: r}
	index := locate.IndexLocator{Runner: r, Command: cfg.Locator.Index}
	glob := locate.GlobLocator{Roots: roots(cfg)}

	switch cfg.Locator.Backend {
	case config.BackendPath:
		return path
	case config.BackendIndex:
		return index
	case config.BackendGlob:
		return glob
	}
	if runtime.GOOS == "darwin" {
		return locate.Chain{path, index, glob}
	}
	return locate.Chain{path, glob}
}

func roots(cfg *config.Config) []string {
	if len(cfg.Locator.Roots) > 0 {
		return cfg.Locator.Roots
	}
	return append([]string{cfg.HomebrewPrefix}, DefaultRoots...)
}
