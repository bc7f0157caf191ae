package forkpin

import (
	"github.com/ppiankov/forkpin/internal/source"
)

// Source is where the dependency must be loaded from.
type Source string

const (
	LocalFork Source = Source(source.LocalFork)
	Registry  Source = Source(source.Registry)
)

// Selection is a successful resolution.
type Selection struct {
	ID          string
	Source      Source
	Reason      string
	Path        string // the fork path; empty for registry selections
	Explanation string
}

// UseFork reports whether the dependency must be loaded from Path.
func (s Selection) UseFork() bool {
	return s.Source == LocalFork
}

var (
	// ErrLocalForkMissing is matched by errors.Is when the fork is expected
	// but absent or incomplete.
	ErrLocalForkMissing = source.ErrLocalForkMissing
	// ErrInvalidOverride is matched by errors.Is when strict mode rejects
	// the override value.
	ErrInvalidOverride = source.ErrInvalidOverride
)

func toSelection(id string, d source.Decision) Selection {
	sel := Selection{
		ID:          id,
		Source:      Source(d.Kind),
		Reason:      string(d.Reason),
		Explanation: d.Explain(),
	}
	if d.UseFork() {
		sel.Path = d.ForkPath
	}
	return sel
}
