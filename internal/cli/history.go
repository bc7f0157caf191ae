package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forkpin/internal/config"
	"github.com/ppiankov/forkpin/internal/history"
)

var (
	historyLimit       int
	historyTransitions bool
	historyFormat      string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum rows to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyTransitions, "transitions", false, "Only show rows where the outcome changed")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json)")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent resolution outcomes from the history database",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return fmt.Errorf("no history_db configured")
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	var rows []history.Row
	if historyTransitions {
		rows, err = store.Transitions(cmd.Context(), historyLimit)
	} else {
		rows, err = store.Recent(cmd.Context(), historyLimit)
	}
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		if rows == nil {
			rows = []history.Row{}
		}
		out, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No decisions recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tDEPENDENCY\tOUTCOME\tOVERRIDE\tFORK VALID")
	for _, r := range rows {
		override := "-"
		if r.Override != nil {
			override = fmt.Sprintf("%q", *r.Override)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%v\n",
			r.Time.Local().Format("2006-01-02 15:04:05"), r.Dependency, r.Outcome(), override, r.ForkValid)
	}
	return tw.Flush()
}
