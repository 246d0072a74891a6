// Zerostock-cfg configures ZeroStock stock displays over the network.
//
// It finds config daemons with mDNS, shows their current settings and
// wireless state, and sends write requests that change the ticker, refresh
// interval, data range, API endpoint, display mode or wireless network.
//
// Usage:
//
//	zerostock-cfg [command] [flags]
//
// Running without arguments launches the interactive wizard.
//
// Devices found by 'scan' are remembered in the user config directory; the
// last one used is the default for later commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/zerostock/internal/logging"
	"github.com/muurk/zerostock/internal/version"
)

func main() {
	// Silent unless ZEROSTOCK_LOG_LEVEL is set
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logging.Sync()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zerostock-cfg",
	Short: "ZeroStock display configuration utility",
	Long: `A utility for configuring ZeroStock e-paper stock displays.

Provides daemon discovery, an interactive configuration wizard and direct
configuration commands. If no command is given, the wizard launches.
Every request is validated locally with the same rules the
daemon applies before it is sent.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("zerostock-cfg %s\n", version.Full())
	},
}
