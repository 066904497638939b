package env

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Well-known variables injected into every build invocation.
const (
	Path        = "PATH"
	CPath       = "CPATH"
	LibraryPath = "LIBRARY_PATH"
	PythonPath  = "PYTHONPATH"
)

// Context is an immutable set of environment overrides for child processes.
// The zero value is an empty context. Every mutator returns a new Context.
type Context struct {
	vars map[string]string
}

// With returns a copy of c with key set to val.
func (c Context) With(key, val string) Context {
	vars := make(map[string]string, len(c.vars)+1)
	for k, v := range c.vars {
		vars[k] = v
	}
	vars[key] = val
	return Context{vars: vars}
}

// AppendPath returns a copy of c with dir appended to the list variable key.
// Empty dirs are ignored.
func (c Context) AppendPath(key, dir string) Context {
	if dir == "" {
		return c
	}
	if cur := c.vars[key]; cur != "" {
		return c.With(key, cur+string(os.PathListSeparator)+dir)
	}
	return c.With(key, dir)
}

// PrependPath returns a copy of c with dir prepended to the list variable key.
func (c Context) PrependPath(key, dir string) Context {
	if dir == "" {
		return c
	}
	if cur := c.vars[key]; cur != "" {
		return c.With(key, dir+string(os.PathListSeparator)+cur)
	}
	return c.With(key, dir)
}

// Get returns the override for key.
func (c Context) Get(key string) (string, bool) {
	v, ok := c.vars[key]
	return v, ok
}

// Keys returns the overridden variable names in sorted order.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c.vars))
	for k := range c.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of overrides.
func (c Context) Len() int {
	return len(c.vars)
}

// Environ merges the overrides into base, overrides winning. The result is
// sorted by key, suitable for exec.Cmd.Env.
func (c Context) Environ(base []string) []string {
	envMap := make(map[string]string, len(base)+len(c.vars))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envMap[k] = v
		}
	}
	for k, v := range c.vars {
		envMap[k] = v
	}
	keys := make([]string, 0, len(envMap))
	for k := range envMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+envMap[k])
	}
	return out
}

// SitePackages returns the interpreter module directory below prefix.
func SitePackages(prefix, pythonVersion string) string {
	return filepath.Join(prefix, "lib", "python"+pythonVersion, "site-packages")
}

// BuildContext assembles the environment handed to every build phase:
// PATH extended with toolDirs, and compiler, linker and interpreter search
// paths rooted at prefix.
func BuildContext(basePath, prefix, pythonVersion string, toolDirs ...string) Context {
	c := Context{}.With(Path, basePath)
	for _, dir := range toolDirs {
		c = c.AppendPath(Path, dir)
	}
	return c.
		With(CPath, filepath.Join(prefix, "include")).
		With(LibraryPath, filepath.Join(prefix, "lib")).
		With(PythonPath, SitePackages(prefix, pythonVersion))
}
