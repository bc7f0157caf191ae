package forkpin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/forkpin/internal/audit"
)

func env(vals map[string]string) Option {
	return WithLookupEnv(func(k string) (string, bool) {
		v, ok := vals[k]
		return v, ok
	})
}

func newFork(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("FORKPIN_CONFIG", "")
	fork := filepath.Join(home, "src", "tool-cli")
	if err := os.MkdirAll(filepath.Join(fork, ".git"), 0755); err != nil {
		t.Fatal(err)
	}
	return fork
}

func TestResolveDefaultsToFork(t *testing.T) {
	fork := newFork(t)
	c, err := New(WithForkPath("~/src/tool-cli"), env(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	sel, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !sel.UseFork() || sel.Path != fork {
		t.Fatalf("expected fork at %s, got %+v", fork, sel)
	}
	if sel.ID == "" || sel.Explanation == "" {
		t.Fatalf("expected id and explanation, got %+v", sel)
	}
}

func TestResolveOverride(t *testing.T) {
	newFork(t)
	c, err := New(WithForkPath("/does/not/exist"), WithOverrideEnv("TOOL_FORK"), env(map[string]string{"TOOL_FORK": "0"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sel, err := c.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sel.Source != Registry || sel.Path != "" {
		t.Fatalf("expected registry selection without path, got %+v", sel)
	}
}

func TestLoadNotCalledWhenForkMissing(t *testing.T) {
	newFork(t)
	c, err := New(WithForkPath("/does/not/exist"), env(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	called := false
	err = c.Load(context.Background(), func(ctx context.Context, sel Selection) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrLocalForkMissing) {
		t.Fatalf("expected ErrLocalForkMissing, got %v", err)
	}
	if called {
		t.Fatal("loader must not run when resolution is refused")
	}
}

func TestLoadPassesSelection(t *testing.T) {
	fork := newFork(t)
	c, err := New(WithForkPath(fork), env(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var got Selection
	err = c.Load(context.Background(), func(ctx context.Context, sel Selection) error {
		got = sel
		return nil
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Path != fork {
		t.Fatalf("expected %s, got %+v", fork, got)
	}
}

func TestStrictOption(t *testing.T) {
	fork := newFork(t)
	c, err := New(WithForkPath(fork), WithStrict(true), env(map[string]string{"FORKPIN_USE_LOCAL_FORK": "false"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Resolve(context.Background()); !errors.Is(err, ErrInvalidOverride) {
		t.Fatalf("expected ErrInvalidOverride, got %v", err)
	}
}

func TestMarkersOption(t *testing.T) {
	fork := newFork(t)
	c, err := New(WithForkPath(fork), WithMarkers(".git", "pyproject.toml"), env(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Resolve(context.Background()); !errors.Is(err, ErrLocalForkMissing) {
		t.Fatalf("expected missing marker to fail closed, got %v", err)
	}
}

func TestMustResolvePanicsOnRefusal(t *testing.T) {
	newFork(t)
	c, err := New(WithForkPath("/does/not/exist"), env(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	c.MustResolve(context.Background())
}

func TestRecordingWritesAuditLog(t *testing.T) {
	fork := newFork(t)
	c, err := New(WithForkPath(fork), WithRecording(), env(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	path := filepath.Join(os.Getenv("HOME"), ".forkpin", "audit.jsonl")
	if res := audit.Verify(path); !res.Valid || res.Lines != 1 {
		t.Fatalf("expected one verified entry, got %+v", res)
	}
}

func TestNewRejectsInvalidOverrideEnv(t *testing.T) {
	newFork(t)
	if _, err := New(WithOverrideEnv("not a name")); err == nil {
		t.Fatal("expected error for invalid override env")
	}
}
