package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ppiankov/forkpin/internal/audit"
	"github.com/ppiankov/forkpin/internal/config"
	"github.com/ppiankov/forkpin/internal/history"
	"github.com/ppiankov/forkpin/internal/source"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, override state and the local fork",
	RunE:  runDoctor,
}

var (
	okMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("\u2713") // ✓
	failMark = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render("\u2717") // ✗
	fixStyle = lipgloss.NewStyle().Faint(true)
)

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Config file.
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		checks = append(checks, checkResult{label: "config file", ok: true, detail: path})
	} else {
		checks = append(checks, checkResult{label: "config file", ok: true, detail: "not found, using defaults"})
	}

	cfg, _, err := config.LoadConfigWithHash(configPath)
	if err != nil {
		checks = append(checks, checkResult{label: "config valid", detail: err.Error(), fix: "fix the YAML in " + path})
		return printChecks(cmd, checks)
	}
	if err := cfg.Validate(); err != nil {
		checks = append(checks, checkResult{label: "config valid", detail: err.Error(), fix: "edit " + path})
	} else {
		checks = append(checks, checkResult{label: "config valid", ok: true, detail: "dependency " + cfg.Dependency})
	}

	// 2. Override variable.
	value, set := os.LookupEnv(cfg.OverrideEnv)
	override := checkResult{label: "override", ok: true}
	switch {
	case !set:
		override.detail = fmt.Sprintf("%s unset (default policy: local fork)", cfg.OverrideEnv)
	case value == source.Sentinel:
		override.detail = fmt.Sprintf("%s=0 (registry)", cfg.OverrideEnv)
	case cfg.Strict:
		override.ok = false
		override.detail = fmt.Sprintf("%s=%q rejected in strict mode", cfg.OverrideEnv, value)
		override.fix = fmt.Sprintf("unset %s or set it to 0", cfg.OverrideEnv)
	default:
		override.detail = fmt.Sprintf("%s=%q is not 0, treated as unset", cfg.OverrideEnv, value)
	}
	checks = append(checks, override)

	// 3. Fork path and markers.
	s, err := openSession(false)
	if err == nil {
		defer s.Close()
		r := s.gate.Probe()
		forkNeeded := !(set && value == source.Sentinel)
		switch {
		case !r.Exists:
			checks = append(checks, checkResult{
				label:  "local fork",
				ok:     !forkNeeded,
				detail: r.Detail(),
				fix:    fmt.Sprintf("clone the fork to %s, or set %s=0 to use the registry", cfg.ForkPath, cfg.OverrideEnv),
			})
		case !r.Valid:
			checks = append(checks, checkResult{
				label:  "fork markers",
				ok:     !forkNeeded,
				detail: r.Detail(),
				fix:    "check that " + cfg.ForkPath + " is a complete checkout",
			})
		default:
			checks = append(checks, checkResult{label: "local fork", ok: true, detail: r.Detail()})
		}
	}

	// 4. Audit log chain.
	if cfg.AuditLog != "" {
		if _, err := os.Stat(cfg.AuditLog); errors.Is(err, os.ErrNotExist) {
			checks = append(checks, checkResult{label: "audit log", ok: true, detail: "no entries yet"})
		} else if res := audit.Verify(cfg.AuditLog); res.Valid {
			checks = append(checks, checkResult{label: "audit log", ok: true, detail: fmt.Sprintf("%d entries, chain intact", res.Lines)})
		} else {
			checks = append(checks, checkResult{
				label:  "audit log",
				detail: fmt.Sprintf("line %d: %s", res.ErrorLine, res.Error),
				fix:    "forkpin audit verify",
			})
		}
	}

	// 5. History database.
	if cfg.HistoryDB != "" {
		if _, err := os.Stat(cfg.HistoryDB); errors.Is(err, os.ErrNotExist) {
			checks = append(checks, checkResult{label: "history db", ok: true, detail: "not created yet"})
		} else if store, err := history.Open(cfg.HistoryDB); err != nil {
			checks = append(checks, checkResult{label: "history db", detail: err.Error(), fix: "remove " + cfg.HistoryDB})
		} else {
			store.Close()
			checks = append(checks, checkResult{label: "history db", ok: true, detail: cfg.HistoryDB})
		}
	}

	return printChecks(cmd, checks)
}

func printChecks(cmd *cobra.Command, checks []checkResult) error {
	out := cmd.OutOrStdout()
	hasFailures := false
	for _, c := range checks {
		mark := okMark
		if !c.ok {
			mark = failMark
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-14s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fixStyle.Render("  ->  " + c.fix)
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}

	fmt.Fprintln(out)
	if hasFailures {
		fmt.Fprintln(out, "Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}
	fmt.Fprintln(out, "All checks passed.")
	return nil
}
