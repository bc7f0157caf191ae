package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forkpin/internal/audit"
	"github.com/ppiankov/forkpin/internal/config"
)

var (
	auditFormat string
	auditFailed bool
	auditSince  time.Duration
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditShowCmd.Flags().StringVarP(&auditFormat, "format", "f", "text", "Output format (text|json)")
	auditShowCmd.Flags().BoolVar(&auditFailed, "failed", false, "Only show refused resolutions")
	auditShowCmd.Flags().DurationVar(&auditSince, "since", 0, "Only show entries newer than this (e.g. 24h)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained decision log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify hash chain integrity of an audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditVerify,
}

var auditShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show recorded decisions",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuditShow,
}

func auditPath(args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return "", err
	}
	if cfg.AuditLog == "" {
		return "", fmt.Errorf("no audit_log configured")
	}
	return cfg.AuditLog, nil
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	path, err := auditPath(args)
	if err != nil {
		return err
	}
	result := audit.Verify(path)
	if result.Valid {
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d entries verified\n", result.Lines)
		return nil
	}
	return fmt.Errorf("FAILED at line %d: %s", result.ErrorLine, result.Error)
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	path, err := auditPath(args)
	if err != nil {
		return err
	}

	filter := audit.Filter{FailedOnly: auditFailed}
	if auditSince > 0 {
		filter.From = time.Now().Add(-auditSince)
	}
	result, err := audit.Read(path, filter)
	if err != nil {
		return err
	}

	switch auditFormat {
	case "json":
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
	case "text":
		fmt.Fprint(cmd.OutOrStdout(), audit.FormatTable(result))
	default:
		return fmt.Errorf("unknown format %q (want text or json)", auditFormat)
	}
	return nil
}
