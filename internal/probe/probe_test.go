package probe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func makeFork(t *testing.T, entries ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, e := range entries {
		p := filepath.Join(dir, e)
		if strings.HasSuffix(e, "/") {
			if err := os.MkdirAll(p, 0755); err != nil {
				t.Fatal(err)
			}
			continue
		}
		if err := os.WriteFile(p, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCheckValidCheckout(t *testing.T) {
	dir := makeFork(t, ".git/")
	r := Check(dir, nil)
	if !r.Valid || !r.Exists || !r.IsDir {
		t.Fatalf("expected valid result, got %+v", r)
	}
	if !strings.Contains(r.Detail(), "source checkout") {
		t.Errorf("unexpected detail %q", r.Detail())
	}
}

func TestCheckWorktreeGitFile(t *testing.T) {
	dir := makeFork(t, ".git")
	if r := Check(dir, nil); !r.Valid {
		t.Fatalf("expected .git file to satisfy marker, got %+v", r)
	}
}

func TestCheckMissingPath(t *testing.T) {
	r := Check(filepath.Join(t.TempDir(), "nope"), nil)
	if r.Exists || r.Valid {
		t.Fatalf("expected missing, got %+v", r)
	}
	if r.Err != "" {
		t.Errorf("not-exist should not be reported as an error: %q", r.Err)
	}
	if !strings.Contains(r.Detail(), "does not exist") {
		t.Errorf("unexpected detail %q", r.Detail())
	}
}

func TestCheckFileInsteadOfDirectory(t *testing.T) {
	dir := makeFork(t, "fork")
	r := Check(filepath.Join(dir, "fork"), nil)
	if !r.Exists || r.IsDir || r.Valid {
		t.Fatalf("expected existing non-directory, got %+v", r)
	}
}

func TestCheckMissingMarkers(t *testing.T) {
	dir := makeFork(t, ".git/", "pyproject.toml")
	r := Check(dir, []string{".git", "pyproject.toml", "setup.cfg", "src/"})
	if r.Valid {
		t.Fatal("expected invalid result")
	}
	if len(r.Missing) != 2 || r.Missing[0] != "setup.cfg" || r.Missing[1] != "src/" {
		t.Fatalf("unexpected missing markers %v", r.Missing)
	}
	if !strings.Contains(r.Detail(), "setup.cfg, src/") {
		t.Errorf("unexpected detail %q", r.Detail())
	}
}

func TestCheckEmptyPath(t *testing.T) {
	r := Check("", nil)
	if r.Valid || r.Err == "" {
		t.Fatalf("expected error for empty path, got %+v", r)
	}
}
