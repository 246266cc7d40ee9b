package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/netsukuku/cmd/netsukukud/commands"
	"github.com/teranos/netsukuku/logger"
)

var rootCmd = &cobra.Command{
	Use:   "netsukukud",
	Short: "netsukukud - hierarchical QSPN routing daemon",
	Long: `netsukukud runs a Netsukuku-style node: radar neighbor discovery,
per-level QSPN round convergence, tracer-packet route construction, and
route installation into the kernel routing table.

Available commands:
  start   - Run the routing daemon
  status  - Query a running daemon's live status
  map     - Dump the configured neighbor map
  version - Show build information`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(false, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().String("config", "", "Path to a netsukukud.toml config file")

	rootCmd.AddCommand(commands.StartCmd)
	rootCmd.AddCommand(commands.StatusCmd)
	rootCmd.AddCommand(commands.MapCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
