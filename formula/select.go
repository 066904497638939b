package formula

import (
	"fmt"
	"slices"
	"strings"
)

// OrderError reports a target scheduled before one of its dependencies, or
// depending on a target that is not scheduled at all.
type OrderError struct {
	Target    string
	DependsOn string
	Missing   bool
}

func (e *OrderError) Error() string {
	if e.Missing {
		return fmt.Sprintf("target %s depends on %s, which is not selected", e.Target, e.DependsOn)
	}
	return fmt.Sprintf("target %s is scheduled before its dependency %s", e.Target, e.DependsOn)
}

// UnknownTargetError reports enable names the recipe does not declare.
type UnknownTargetError struct {
	Names []string
}

func (e *UnknownTargetError) Error() string {
	return "unknown targets: " + strings.Join(e.Names, ", ")
}

// Select returns the default targets plus the optional targets named in
// enable, in declaration order.
func (f *Formula) Select(enable []string) ([]Target, error) {
	var unknown []string
	for _, name := range enable {
		if _, ok := f.Target(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return nil, &UnknownTargetError{Names: unknown}
	}

	var out []Target
	for _, t := range f.Targets {
		if !t.Optional || slices.Contains(enable, t.Name) {
			out = append(out, t)
		}
	}
	return out, nil
}

// CheckOrder verifies every dependency of a target appears earlier in
// targets.
func CheckOrder(targets []Target) error {
	pos := make(map[string]int, len(targets))
	for i, t := range targets {
		pos[t.Name] = i
	}
	for i, t := range targets {
		for _, dep := range t.DependsOn {
			j, ok := pos[dep]
			if !ok {
				return &OrderError{Target: t.Name, DependsOn: dep, Missing: true}
			}
			if j >= i {
				return &OrderError{Target: t.Name, DependsOn: dep}
			}
		}
	}
	return nil
}

// Names returns the names of targets.
func Names(targets []Target) []string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.Name
	}
	return names
}

// ToolsFor returns the tools to bootstrap for targets: every tool that is not
// on demand, plus the on-demand tools a target requires. The second result
// holds the on-demand tools left out.
func (f *Formula) ToolsFor(targets []Target) (probe, skipped []Tool) {
	for _, t := range f.Tools {
		if !t.OnDemand || Required(t.Name, targets) {
			probe = append(probe, t)
			continue
		}
		skipped = append(skipped, t)
	}
	return probe, skipped
}
