// Package probe checks that a local fork path exists and looks like a
// source checkout.
package probe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMarkers are required when no markers are configured.
var DefaultMarkers = []string{".git"}

// Result describes what was found at a fork path.
type Result struct {
	Path    string   `json:"path"`
	Exists  bool     `json:"exists"`
	IsDir   bool     `json:"is_dir"`
	Missing []string `json:"missing,omitempty"`
	Valid   bool     `json:"valid"`
	Err     string   `json:"error,omitempty"`
}

// Func is the probe signature injected into callers.
type Func func(path string, markers []string) Result

// Check stats path and every marker beneath it. A marker may be a file or
// a directory (git worktrees use a .git file).
func Check(path string, markers []string) Result {
	r := Result{Path: path}
	if path == "" {
		r.Err = "no fork path configured"
		return r
	}

	info, err := os.Stat(path)
	if err != nil {
		if !os.IsNotExist(err) {
			r.Err = err.Error()
		}
		return r
	}
	r.Exists = true
	r.IsDir = info.IsDir()
	if !r.IsDir {
		return r
	}

	if len(markers) == 0 {
		markers = DefaultMarkers
	}
	for _, m := range markers {
		if _, err := os.Lstat(filepath.Join(path, m)); err != nil {
			r.Missing = append(r.Missing, m)
		}
	}
	r.Valid = len(r.Missing) == 0
	return r
}

// Detail summarises the result for diagnostics.
func (r Result) Detail() string {
	switch {
	case r.Err != "":
		return r.Err
	case !r.Exists:
		return fmt.Sprintf("%s does not exist", r.Path)
	case !r.IsDir:
		return fmt.Sprintf("%s is not a directory", r.Path)
	case len(r.Missing) > 0:
		return fmt.Sprintf("%s is missing %s", r.Path, strings.Join(r.Missing, ", "))
	}
	return fmt.Sprintf("%s looks like a source checkout", r.Path)
}
