package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/forkpin/internal/audit"
)

const testOverrideVar = "CLI_TEST_USE_LOCAL_FORK"

// setup writes a config pointing at a fork under a temp HOME and returns
// the fork path and config path.
func setup(t *testing.T, forkExists bool) (string, string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("FORKPIN_CONFIG", "")
	os.Unsetenv(testOverrideVar)

	fork := filepath.Join(home, "src", "tool-cli")
	if forkExists {
		require.NoError(t, os.MkdirAll(filepath.Join(fork, ".git"), 0755))
	}

	cfgPath := filepath.Join(home, ".forkpin", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(cfgPath), 0700))
	content := "dependency: tool-cli\n" +
		"fork_path: ~/src/tool-cli\n" +
		"override_env: " + testOverrideVar + "\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0600))
	return fork, cfgPath
}

func resetFlags() {
	configPath = ""
	verbose = false
	resolveFormat = "text"
	resolveStrict = false
	resolveNoRecord = false
	auditFormat = "text"
	auditFailed = false
	auditSince = 0
	historyLimit = 20
	historyTransitions = false
	historyFormat = "text"
	initForkPath = ""
	initDependency = ""
	initStrict = false
	initForce = false
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestResolveLocalFork(t *testing.T) {
	fork, _ := setup(t, true)

	out, _, err := run(t, "resolve")
	require.NoError(t, err)
	assert.Contains(t, out, "using local fork at "+fork)

	out, _, err = run(t, "resolve", "--format", "path")
	require.NoError(t, err)
	assert.Equal(t, fork+"\n", out)
}

func TestResolveOverrideSelectsRegistry(t *testing.T) {
	setup(t, false)
	t.Setenv(testOverrideVar, "0")

	out, _, err := run(t, "resolve", "-f", "path")
	require.NoError(t, err)
	assert.Equal(t, "registry\n", out)

	out, _, err = run(t, "resolve", "-f", "json")
	require.NoError(t, err)
	var decoded struct {
		DecisionID string `json:"decision_id"`
		Decision   struct {
			Source string `json:"source"`
			Reason string `json:"reason"`
		} `json:"decision"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.NotEmpty(t, decoded.DecisionID)
	assert.Equal(t, "registry", decoded.Decision.Source)
	assert.Equal(t, "override_requested", decoded.Decision.Reason)
}

func TestResolveMissingForkExitsConfig(t *testing.T) {
	fork, _ := setup(t, false)

	out, stderr, err := run(t, "resolve")
	require.Error(t, err)
	assert.Empty(t, out, "no decision may be printed")

	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, ExitConfig, ee.code)
	assert.Contains(t, err.Error(), fork)
	assert.Contains(t, err.Error(), testOverrideVar+"=0")
	assert.Contains(t, stderr, "does not exist")
}

func TestResolveStrictFlag(t *testing.T) {
	setup(t, true)
	t.Setenv(testOverrideVar, "1")

	_, _, err := run(t, "resolve")
	require.NoError(t, err, "non-sentinel is treated as unset by default")

	_, _, err = run(t, "resolve", "--strict")
	var ee *exitError
	require.True(t, errors.As(err, &ee))
	assert.Contains(t, err.Error(), "invalid value")
}

func TestSessionReloadPicksUpConfigEdits(t *testing.T) {
	_, cfgPath := setup(t, true)
	resetFlags()
	t.Setenv(testOverrideVar, "1")

	s, err := openSession(false)
	require.NoError(t, err)
	defer s.Close()

	out, err := s.gate.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local_fork/default_policy", out.Key())

	f, err := os.OpenFile(cfgPath, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("strict: true\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	g, err := s.reload()
	require.NoError(t, err)
	assert.Same(t, g, s.gate)
	assert.True(t, s.cfg.Strict)

	out, err = g.Check(context.Background())
	require.Error(t, err)
	assert.Equal(t, "INVALID_OVERRIDE_VALUE", out.Key())
}

func TestResolveRecordsAudit(t *testing.T) {
	setup(t, true)
	home := os.Getenv("HOME")

	_, _, err := run(t, "resolve")
	require.NoError(t, err)
	_, _, err = run(t, "resolve", "--no-record")
	require.NoError(t, err)

	auditPath := filepath.Join(home, ".forkpin", "audit.jsonl")
	res := audit.Verify(auditPath)
	assert.True(t, res.Valid)
	assert.Equal(t, 1, res.Lines)

	out, _, err := run(t, "audit", "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 1 entries verified")

	out, _, err = run(t, "audit", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "LOCAL_FORK")

	out, _, err = run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "local_fork/default_policy")

	out, _, err = run(t, "history", "-n", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "local_fork/default_policy")
}

func TestHistoryTransitions(t *testing.T) {
	fork, _ := setup(t, true)

	for i := 0; i < 2; i++ {
		_, _, err := run(t, "resolve")
		require.NoError(t, err)
	}
	require.NoError(t, os.RemoveAll(fork))
	_, _, err := run(t, "resolve")
	require.Error(t, err)

	out, _, err := run(t, "history", "--transitions", "-f", "json")
	require.NoError(t, err)

	var rows []struct {
		Source    string `json:"source"`
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "LOCAL_FORK_MISSING", rows[0].ErrorCode)
	assert.Equal(t, "local_fork", rows[1].Source)
}

func TestResolveUnknownFormat(t *testing.T) {
	setup(t, true)
	_, _, err := run(t, "resolve", "-f", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestAuditVerifyDetectsTamper(t *testing.T) {
	setup(t, true)
	home := os.Getenv("HOME")
	for i := 0; i < 3; i++ {
		_, _, err := run(t, "resolve")
		require.NoError(t, err)
	}

	path := filepath.Join(home, ".forkpin", "audit.jsonl")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	lines[1] = strings.Replace(lines[1], `"local_fork"`, `"registry"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))

	_, _, err = run(t, "audit", "verify", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FAILED at line 3")
}

func TestDoctorPassesWithFork(t *testing.T) {
	setup(t, true)

	out, _, err := run(t, "doctor")
	require.NoError(t, err, out)
	assert.Contains(t, out, "All checks passed.")
	assert.Contains(t, out, testOverrideVar+" unset")
}

func TestDoctorFailsWithoutFork(t *testing.T) {
	setup(t, false)

	out, _, err := run(t, "doctor")
	require.Error(t, err)
	assert.Contains(t, out, "local fork:")
	assert.Contains(t, out, testOverrideVar+"=0 to use the registry")
}

func TestDoctorAcceptsMissingForkWithOverride(t *testing.T) {
	setup(t, false)
	t.Setenv(testOverrideVar, "0")

	out, _, err := run(t, "doctor")
	require.NoError(t, err, out)
	assert.Contains(t, out, "(registry)")
}

func TestInitWritesConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("FORKPIN_CONFIG", "")

	out, _, err := run(t, "init", "--dependency", "other-cli", "--strict")
	require.NoError(t, err)
	path := filepath.Join(home, ".forkpin", "config.yaml")
	assert.Contains(t, out, "created: "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "fork_path: ~/src/other-cli")
	assert.Contains(t, string(data), "strict: true")

	out, _, err = run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "exists:")
	data2, _ := os.ReadFile(path)
	assert.Equal(t, data, data2, "existing config must not be overwritten without --force")
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "forkpin"`)
}
