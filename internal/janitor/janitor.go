// Package janitor tracks the transient files of a single pipeline run and
// removes them when the run ends.
package janitor

import (
	"errors"
	"fmt"
	"os"
)

// Janitor owns the transient files created during one run. It is not safe for
// concurrent use; every run gets its own instance.
type Janitor struct {
	dir   string
	paths []string
}

// New creates a janitor that creates files in dir (os.TempDir() when empty).
func New(dir string) *Janitor {
	return &Janitor{dir: dir}
}

// CreateTemp creates a new transient file and registers it for removal.
func (j *Janitor) CreateTemp(pattern string) (*os.File, error) {
	f, err := os.CreateTemp(j.dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	j.Track(f.Name())
	return f, nil
}

// Track registers an existing path for removal.
func (j *Janitor) Track(path string) {
	if path == "" {
		return
	}
	j.paths = append(j.paths, path)
}

// Paths returns the currently tracked paths.
func (j *Janitor) Paths() []string {
	out := make([]string, len(j.paths))
	copy(out, j.paths)
	return out
}

// Cleanup removes every tracked file, newest first. Files that are already gone
// are not an error. Cleanup may be called more than once.
func (j *Janitor) Cleanup() error {
	var errs []error
	for i := len(j.paths) - 1; i >= 0; i-- {
		if err := os.Remove(j.paths[i]); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	j.paths = nil

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %w", errors.Join(errs...))
	}
	return nil
}
