package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	forkmcp "github.com/ppiankov/forkpin/internal/mcp"
)

var mcpNoRecord bool

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpNoRecord, "no-record", false, "Do not write the audit log or history database")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs forkpin as an MCP (Model Context Protocol) server over stdio.\nExposes tools: forkpin_resolve, forkpin_probe.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	s, err := openSession(!mcpNoRecord)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer s.Close()

	srv := forkmcp.New(s.gate, version)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintln(os.Stderr, "forkpin MCP server running on stdio")
	fmt.Fprintf(os.Stderr, "Dependency: %s  Fork: %s\n\n", s.cfg.Dependency, s.cfg.ForkPath)

	return srv.Run(ctx)
}
