// Package locate finds executables needed by the build.
//
// A Locator answers with a Location; a missing tool is reported as a
// *NotFoundError rather than an empty path.
package locate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotFound is matched by every *NotFoundError.
var ErrNotFound = errors.New("tool not found")

// NotFoundError reports a tool no locator could find. Errs holds the
// failures of locators that could not answer.
type NotFoundError struct {
	Tool string
	Errs []error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Tool, ErrNotFound)
	if len(e.Errs) > 0 {
		msg += " (" + errors.Join(e.Errs...).Error() + ")"
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func (e *NotFoundError) Unwrap() []error {
	return e.Errs
}

// Location is where a tool was found.
type Location struct {
	Name string
	Path string
}

// Found reports whether the location holds a path.
func (l Location) Found() bool {
	return l.Path != ""
}

// Dir returns the directory containing the executable.
func (l Location) Dir() string {
	if l.Path == "" {
		return ""
	}
	return filepath.Dir(l.Path)
}

// Locator finds an executable by name.
type Locator interface {
	Locate(ctx context.Context, name string) (Location, error)
}

// Func adapts a function to Locator.
type Func func(ctx context.Context, name string) (Location, error)

func (f Func) Locate(ctx context.Context, name string) (Location, error) {
	return f(ctx, name)
}

// Static answers from a fixed table. Names missing from the table are not found.
type Static map[string]string

func (s Static) Locate(_ context.Context, name string) (Location, error) {
	if p, ok := s[name]; ok && p != "" {
		return Location{Name: name, Path: p}, nil
	}
	return Location{Name: name}, &NotFoundError{Tool: name}
}

// Chain tries each locator in order and returns the first hit. A locator
// that fails is treated as a miss; its error is kept in the final
// *NotFoundError. Cancellation stops the search.
type Chain []Locator

func (c Chain) Locate(ctx context.Context, name string) (Location, error) {
	var errs []error
	for _, l := range c {
		loc, err := l.Locate(ctx, name)
		if err == nil && loc.Found() {
			return loc, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Location{Name: name}, ctxErr
		}
		if err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return Location{Name: name}, &NotFoundError{Tool: name, Errs: errs}
}
