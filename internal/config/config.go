// Package config loads ecellbrew settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ecell/ecellbrew/internal/env"
)

// FileName is the config file looked up in env.ConfigDir.
const FileName = "config.toml"

// Locator backends.
const (
	BackendAuto  = "auto"
	BackendPath  = "path"
	BackendIndex = "index"
	BackendGlob  = "glob"
)

type Locator struct {
	Backend string   `toml:"backend"`
	Roots   []string `toml:"roots"`
	// Index is the file index command used by the index backend.
	Index string `toml:"index"`
}

type Config struct {
	// Formula is a recipe file used instead of the built-in E-Cell 4 recipe.
	Formula string `toml:"formula"`

	// Prefix is where targets are installed. Empty means the keg
	// <homebrew_prefix>/Cellar/<formula>/<version>.
	Prefix         string `toml:"prefix"`
	HomebrewPrefix string `toml:"homebrew_prefix"`

	// Root is the unpacked source tree containing the waf script.
	Root   string `toml:"root"`
	Python string `toml:"python"`

	// Shell is the bare shell name used for post-install guidance.
	Shell string `toml:"shell"`

	Enable              []string `toml:"enable"`
	Sudo                string   `toml:"sudo"`
	Brew                string   `toml:"brew"`
	SkipDependencyCheck bool     `toml:"skip_dependency_check"`

	Locator Locator `toml:"locator"`
}

// Error reports an unreadable or invalid config file.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Default returns the settings used when no file overrides them, taken from
// HOMEBREW_PREFIX and SHELL.
func Default() *Config {
	hp := os.Getenv("HOMEBREW_PREFIX")
	if hp == "" {
		hp = "/usr/local"
	}
	return &Config{
		HomebrewPrefix: hp,
		Root:           ".",
		Python:         "python",
		Shell:          env.ShellName(os.Getenv("SHELL")),
		Brew:           "brew",
		Locator: Locator{
			Backend: BackendAuto,
			Index:   "mdfind",
		},
	}
}

// DefaultPath returns the config file path under the XDG config home.
func DefaultPath() string {
	return filepath.Join(env.ConfigDir(), FileName)
}

// Load reads path on top of Default. An empty path reads DefaultPath and
// tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return nil, &Error{Path: path, Err: err}
	}
	if err := cfg.Decode(data); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

// Decode merges TOML data into c. Unknown keys are rejected.
func (c *Config) Decode(data []byte) error {
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return fmt.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.HomebrewPrefix == "" {
		errs = append(errs, errors.New("homebrew_prefix must not be empty"))
	} else if !filepath.IsAbs(c.HomebrewPrefix) {
		errs = append(errs, fmt.Errorf("homebrew_prefix %q must be absolute", c.HomebrewPrefix))
	}
	if c.Prefix != "" && !filepath.IsAbs(c.Prefix) {
		errs = append(errs, fmt.Errorf("prefix %q must be absolute", c.Prefix))
	}
	if c.Root == "" {
		errs = append(errs, errors.New("root must not be empty"))
	}
	if c.Python == "" {
		errs = append(errs, errors.New("python must not be empty"))
	}
	if strings.ContainsRune(c.Shell, '/') {
		errs = append(errs, fmt.Errorf("shell %q must be a bare name", c.Shell))
	}
	switch c.Locator.Backend {
	case BackendAuto, BackendPath, BackendIndex, BackendGlob:
	default:
		errs = append(errs, fmt.Errorf("unknown locator backend %q", c.Locator.Backend))
	}
	if c.Locator.Backend == BackendGlob && len(c.Locator.Roots) == 0 {
		errs = append(errs, errors.New("locator backend glob needs at least one root"))
	}
	return errors.Join(errs...)
}
