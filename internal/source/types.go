// Package source decides where a tool loads a dependency from: the local
// source-controlled fork or the public package registry.
//
// The decision is a pure function of an explicit Context. Gathering the
// inputs (environment, filesystem probe) is the caller's job; see the gate
// package for the standard wiring.
package source

import (
	"encoding/json"
	"fmt"
)

// Sentinel is the only override value that disables the local fork.
const Sentinel = "0"

// DefaultOverrideVar is the environment variable consulted when none is configured.
const DefaultOverrideVar = "FORKPIN_USE_LOCAL_FORK"

// Kind identifies the installation the caller must use.
type Kind string

const (
	LocalFork Kind = "local_fork"
	Registry  Kind = "registry"
)

// Reason is a stable code explaining why a Kind was chosen.
type Reason string

const (
	OverrideRequested Reason = "override_requested"
	DefaultPolicy     Reason = "default_policy"
	// LocalForkMissingFallback is recognised when reading decisions produced
	// elsewhere. Resolve never emits it.
	LocalForkMissingFallback Reason = "local_fork_missing_fallback"
)

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case LocalFork, Registry:
		return Kind(s), nil
	}
	return "", fmt.Errorf("source: unknown kind %q", s)
}

// ParseReason converts a string into a Reason.
func ParseReason(s string) (Reason, error) {
	switch Reason(s) {
	case OverrideRequested, DefaultPolicy, LocalForkMissingFallback:
		return Reason(s), nil
	}
	return "", fmt.Errorf("source: unknown reason %q", s)
}

// Context is the full input to a resolution. It is built fresh for every call.
type Context struct {
	// OverrideVar is the environment variable name, used only in messages.
	OverrideVar string
	// Override is the raw variable value. Ignored unless OverrideSet.
	Override    string
	OverrideSet bool
	// ForkPath is where the local fork is expected.
	ForkPath string
	// ForkValid is the already-evaluated existence and structure probe.
	ForkValid bool
}

// Decision is the immutable result of a successful resolution.
type Decision struct {
	Kind          Kind
	Reason        Reason
	ForkPath      string
	OverrideVar   string
	OverrideValue string
}

// UseFork reports whether the caller must load the dependency from the fork.
func (d Decision) UseFork() bool {
	return d.Kind == LocalFork
}

// Explain returns a one-line human-readable justification.
func (d Decision) Explain() string {
	switch d.Reason {
	case OverrideRequested:
		return fmt.Sprintf("using registry: %s=%s explicitly disables the local fork", overrideName(d.OverrideVar), Sentinel)
	case DefaultPolicy:
		return fmt.Sprintf("using local fork at %s (default policy; set %s=%s to use the registry)", d.ForkPath, overrideName(d.OverrideVar), Sentinel)
	case LocalForkMissingFallback:
		return fmt.Sprintf("using registry because the local fork at %s was missing", d.ForkPath)
	}
	return fmt.Sprintf("using %s (%s)", d.Kind, d.Reason)
}

// MarshalJSON renders the decision with its explanation.
func (d Decision) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Source      Kind   `json:"source"`
		Reason      Reason `json:"reason"`
		ForkPath    string `json:"fork_path,omitempty"`
		OverrideVar string `json:"override_var,omitempty"`
		Override    string `json:"override,omitempty"`
		Explanation string `json:"explanation"`
	}{d.Kind, d.Reason, d.ForkPath, d.OverrideVar, d.OverrideValue, d.Explain()})
}

func overrideName(v string) string {
	if v == "" {
		return DefaultOverrideVar
	}
	return v
}
