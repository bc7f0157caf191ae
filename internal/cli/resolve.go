package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forkpin/internal/gate"
	"github.com/ppiankov/forkpin/internal/source"
)

var (
	resolveFormat   string
	resolveStrict   bool
	resolveNoRecord bool
)

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "text", "Output format (text|json|path)")
	resolveCmd.Flags().BoolVar(&resolveStrict, "strict", false, "Reject override values other than \"0\" (also enabled by strict: true in config)")
	resolveCmd.Flags().BoolVar(&resolveNoRecord, "no-record", false, "Do not write the audit log or history database")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Decide whether to load the dependency from the local fork or the registry",
	Long: "Reads the override variable and probes the local fork, then prints the decision.\n\n" +
		"Exit code 0 with a decision, 78 (EX_CONFIG) when the fork is expected but\n" +
		"missing or the override value is rejected in strict mode.\n\n" +
		"--format path prints the fork directory or the literal \"registry\" for scripts:\n" +
		"  src=$(forkpin resolve -f path) || exit",
	RunE: runResolve,
}

type resolveJSON struct {
	DecisionID string          `json:"decision_id"`
	Decision   source.Decision `json:"decision"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	switch resolveFormat {
	case "text", "json", "path":
	default:
		return fmt.Errorf("unknown format %q (want text, json or path)", resolveFormat)
	}

	s, err := openSession(!resolveNoRecord)
	if err != nil {
		return err
	}
	defer s.Close()

	in := gate.Input{}
	if resolveStrict {
		in.Strict = &resolveStrict
	}

	outcome, err := s.gate.CheckWith(cmd.Context(), in)
	if outcome.Err != nil {
		if !outcome.Probe.Valid {
			fmt.Fprintf(cmd.ErrOrStderr(), "probe: %s\n", outcome.Probe.Detail())
		}
		return &exitError{code: ExitConfig, err: outcome.Err}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	d := outcome.Decision
	switch resolveFormat {
	case "json":
		data, err := json.MarshalIndent(resolveJSON{DecisionID: outcome.ID, Decision: d}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
	case "path":
		if d.UseFork() {
			fmt.Fprintln(out, d.ForkPath)
		} else {
			fmt.Fprintln(out, string(source.Registry))
		}
	default:
		fmt.Fprintln(out, d.Explain())
	}
	return nil
}
