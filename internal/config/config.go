package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/forkpin/internal/probe"
	"github.com/ppiankov/forkpin/internal/source"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "FORKPIN_CONFIG"

var envName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config holds everything forkpin needs to build a resolution context.
type Config struct {
	Dependency    string   `yaml:"dependency"`
	ForkPath      string   `yaml:"fork_path"`
	OverrideEnv   string   `yaml:"override_env"`
	Markers       []string `yaml:"markers"`
	Strict        bool     `yaml:"strict"`
	AuditLog      string   `yaml:"audit_log"`
	HistoryDB     string   `yaml:"history_db"`
	AuditRequired bool     `yaml:"audit_required"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Dependency:  "deepagents-cli",
		ForkPath:    "~/src/deepagents-cli",
		OverrideEnv: source.DefaultOverrideVar,
		Markers:     append([]string(nil), probe.DefaultMarkers...),
		AuditLog:    "~/.forkpin/audit.jsonl",
		HistoryDB:   "~/.forkpin/history.db",
	}
}

// Dir returns ~/.forkpin, or "" when the home directory is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".forkpin")
}

// DefaultPath resolves the config path used when none is given:
// $FORKPIN_CONFIG if set and non-blank, else ~/.forkpin/config.yaml.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// LoadConfig loads configuration from a YAML file.
// Empty path falls back to DefaultPath. Missing file returns defaults.
// Invalid YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads configuration and returns the SHA-256 of the raw
// bytes on disk. When no file exists the hash is that of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	var data []byte
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("config: read %s: %w", path, err)
		}
		data = raw
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.expand()
	return cfg, hash, nil
}

// Validate reports configuration that cannot produce a meaningful decision.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ForkPath) == "" {
		return fmt.Errorf("config: fork_path is required")
	}
	if c.OverrideEnv == "" {
		return fmt.Errorf("config: override_env is required")
	}
	if !envName.MatchString(c.OverrideEnv) {
		return fmt.Errorf("config: override_env %q is not a valid environment variable name", c.OverrideEnv)
	}
	for _, m := range c.Markers {
		if m == "" || filepath.IsAbs(m) {
			return fmt.Errorf("config: marker %q must be a relative path", m)
		}
	}
	return nil
}

// Marshal renders c as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) expand() {
	c.ForkPath = ExpandHome(c.ForkPath)
	c.AuditLog = ExpandHome(c.AuditLog)
	c.HistoryDB = ExpandHome(c.HistoryDB)
	if len(c.Markers) == 0 {
		c.Markers = append([]string(nil), probe.DefaultMarkers...)
	}
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
