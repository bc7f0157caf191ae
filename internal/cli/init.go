package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/forkpin/internal/config"
)

var (
	initForkPath   string
	initDependency string
	initStrict     bool
	initForce      bool
)

func init() {
	initCmd.Flags().StringVar(&initForkPath, "fork-path", "", "Expected local fork location (default ~/src/<dependency>)")
	initCmd.Flags().StringVar(&initDependency, "dependency", "", "Dependency name used in logs and audit entries")
	initCmd.Flags().BoolVar(&initStrict, "strict", false, "Reject override values other than \"0\"")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default forkpin configuration",
	Long: `Creates the config file (default ~/.forkpin/config.yaml, or --config).

Existing files are left untouched unless --force is given.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	if path == "" {
		return fmt.Errorf("cannot determine config path: set --config or $%s", config.EnvConfigPath)
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Fprintf(cmd.OutOrStdout(), "exists: %s (use --force to overwrite)\n", path)
		return nil
	}

	cfg := config.DefaultConfig()
	if initDependency != "" {
		cfg.Dependency = initDependency
		cfg.ForkPath = "~/src/" + initDependency
	}
	if initForkPath != "" {
		cfg.ForkPath = initForkPath
	}
	cfg.Strict = initStrict
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created: %s\n", path)
	fmt.Fprintf(cmd.OutOrStdout(), "fork:    %s\n", cfg.ForkPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s=0 to use the registry instead of the fork.\n", cfg.OverrideEnv)
	return nil
}
