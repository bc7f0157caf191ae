package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/forkpin/internal/config"
	"github.com/ppiankov/forkpin/internal/gate"
)

func newTestServer(t *testing.T, forkExists bool, env map[string]string) (*Server, string) {
	t.Helper()
	fork := filepath.Join(t.TempDir(), "tool-cli")
	if forkExists {
		if err := os.MkdirAll(filepath.Join(fork, ".git"), 0755); err != nil {
			t.Fatal(err)
		}
	}
	cfg := config.DefaultConfig()
	cfg.ForkPath = fork
	cfg.OverrideEnv = "TOOL_USE_LOCAL_FORK"

	g, err := gate.New(cfg, gate.WithLookupEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}))
	if err != nil {
		t.Fatalf("failed to create gate: %v", err)
	}
	return New(g, "test"), fork
}

func strp(s string) *string { return &s }

func TestResolveDefaultPolicy(t *testing.T) {
	s, fork := newTestServer(t, true, nil)

	result, out, err := s.handleResolve(context.Background(), &mcpsdk.CallToolRequest{}, ResolveInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil && result.IsError {
		t.Fatal("expected success, got error result")
	}
	if out.Source != "local_fork" || out.Reason != "default_policy" {
		t.Fatalf("expected local_fork/default_policy, got %s/%s", out.Source, out.Reason)
	}
	if out.ForkPath != fork {
		t.Fatalf("expected fork path %s, got %s", fork, out.ForkPath)
	}
	if !strings.Contains(out.Explanation, fork) {
		t.Fatalf("explanation should name the fork: %q", out.Explanation)
	}
}

func TestResolveMissingForkIsError(t *testing.T) {
	s, fork := newTestServer(t, false, nil)

	result, out, err := s.handleResolve(context.Background(), &mcpsdk.CallToolRequest{}, ResolveInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected IsError result for missing fork")
	}
	if !out.Refused || out.ErrorCode != "LOCAL_FORK_MISSING" {
		t.Fatalf("expected refusal with LOCAL_FORK_MISSING, got %+v", out)
	}
	if out.Source != "" {
		t.Fatalf("refusal must not carry a source, got %q", out.Source)
	}
	if !strings.Contains(out.Error, fork) || !strings.Contains(out.Error, "TOOL_USE_LOCAL_FORK=0") {
		t.Fatalf("error should be actionable: %q", out.Error)
	}
}

func TestResolveOverrideInput(t *testing.T) {
	s, _ := newTestServer(t, false, nil)

	_, out, err := s.handleResolve(context.Background(), &mcpsdk.CallToolRequest{}, ResolveInput{Override: strp("0")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Source != "registry" || out.Reason != "override_requested" {
		t.Fatalf("expected registry/override_requested, got %+v", out)
	}
}

func TestResolveUnsetIgnoresEnvironment(t *testing.T) {
	s, _ := newTestServer(t, true, map[string]string{"TOOL_USE_LOCAL_FORK": "0"})

	_, out, _ := s.handleResolve(context.Background(), &mcpsdk.CallToolRequest{}, ResolveInput{})
	if out.Source != "registry" {
		t.Fatalf("expected environment override to apply, got %+v", out)
	}

	_, out, _ = s.handleResolve(context.Background(), &mcpsdk.CallToolRequest{}, ResolveInput{Unset: true})
	if out.Source != "local_fork" {
		t.Fatalf("expected unset to restore default policy, got %+v", out)
	}
}

func TestResolveStrictInput(t *testing.T) {
	s, _ := newTestServer(t, true, nil)
	strict := true

	result, out, err := s.handleResolve(context.Background(), &mcpsdk.CallToolRequest{},
		ResolveInput{Override: strp("1"), Strict: &strict})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError || out.ErrorCode != "INVALID_OVERRIDE_VALUE" {
		t.Fatalf("expected INVALID_OVERRIDE_VALUE refusal, got %+v", out)
	}
}

func TestProbeTool(t *testing.T) {
	s, fork := newTestServer(t, false, nil)

	_, out, err := s.handleProbe(context.Background(), &mcpsdk.CallToolRequest{}, ProbeInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Valid || out.Exists || out.Path != fork {
		t.Fatalf("unexpected probe output %+v", out)
	}
	if !strings.Contains(out.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", out.Detail)
	}
}

func TestToolRegistration(t *testing.T) {
	s, _ := newTestServer(t, true, nil)
	if s.mcpServer == nil {
		t.Fatal("expected MCP server to be initialized")
	}
}
