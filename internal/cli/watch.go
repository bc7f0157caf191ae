package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forkpin/internal/config"
	"github.com/ppiankov/forkpin/internal/gate"
	"github.com/ppiankov/forkpin/internal/watch"
)

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period after filesystem events before re-resolving")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-resolve whenever the local fork or the config file changes",
	Long:  "Watches the fork directory, its parent and the config file. Prints a line\nwhenever the outcome changes, e.g. when the fork is removed. Config edits\nare reloaded; the audit log and history database stay as opened at startup.",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	out := cmd.OutOrStdout()
	w, err := watch.New(s.gate, s.cfg.ForkPath, []string{path},
		watch.WithDebounce(watchDebounce),
		watch.WithLogger(logger),
		watch.WithReload(func() (watch.Checker, string, error) {
			g, err := s.reload()
			if err != nil {
				return nil, "", err
			}
			return g, s.cfg.ForkPath, nil
		}),
		watch.OnChange(func(prev, cur gate.Outcome) {
			ts := cur.Time.Format("15:04:05")
			if cur.Err != nil {
				fmt.Fprintf(out, "%s REFUSED  %v\n", ts, cur.Err)
				return
			}
			fmt.Fprintf(out, "%s %-8s %s\n", ts, cur.Decision.Kind, cur.Decision.Explain())
		}))
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(cmd.ErrOrStderr(), "watching %v (ctrl-c to stop)\n", w.Watched())
	return w.Run(ctx)
}

var _ watch.Checker = (*gate.Gate)(nil)
