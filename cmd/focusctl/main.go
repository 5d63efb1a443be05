package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aether-health/focus-engine/cmd/focusctl/commands"
	"github.com/aether-health/focus-engine/pkg/observability/logging"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	if _, err := logging.InitLoggerFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
	}
	defer logging.Sync()

	rootCmd := &cobra.Command{
		Use:   "focusctl",
		Short: "Focus-area scoring engine CLI",
		Long: `focusctl scores patient intake records against the focus-area rule set
and prints the ranked report.

Common workflows:
  focusctl score record.json       # Score a record file
  focusctl config validate         # Validate a configuration file
  focusctl config show             # Print the effective configuration

For detailed help on any command, use:
  focusctl <command> --help`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format: table, json")

	rootCmd.AddCommand(commands.NewScoreCmd())
	rootCmd.AddCommand(commands.NewConfigCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
