// Zerostock-cfgd is the configuration daemon of the ZeroStock e-paper
// stock display.
//
// It accepts write requests that patch the display's settings file, join a
// wireless network and restart the display service, and answers read
// requests with the current settings and wireless state. Requests arrive
// over HTTP and WebSocket; the daemon advertises itself over mDNS so that
// 'zerostock-cfg scan' can find it.
//
// Usage:
//
//	zerostock-cfgd serve [flags]
//	zerostock-cfgd show
//	zerostock-cfgd apply '{"base":{"ticker":"BTC-USD"}}'
//
// Settings are read from /etc/zerostock/cfgd.yaml, ZEROSTOCK_* environment
// variables and flags, in increasing order of precedence.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/zerostock/internal/config"
	"github.com/muurk/zerostock/internal/logging"
	"github.com/muurk/zerostock/internal/version"
)

// errStatusFailed is returned when a request produced an "error:" status
// that has already been printed.
var errStatusFailed = errors.New("request failed")

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		if !errors.Is(err, errStatusFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var (
	configFile string
	logLevel   string

	settings = config.NewDaemonViper()
)

var rootCmd = &cobra.Command{
	Use:   "zerostock-cfgd",
	Short: "ZeroStock configuration daemon",
	Long: `Configuration daemon for the ZeroStock e-paper stock display.

The daemon owns the display's settings file. It validates remote write
requests, patches only the whitelisted keys while keeping comments and
layout, joins wireless networks through NetworkManager or wpa_supplicant,
and restarts the display service on request.

Use 'serve' to run the daemon, or 'show' and 'apply' to run a single
request locally without any network transport.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default /etc/zerostock/cfgd.yaml)")
	rootCmd.PersistentFlags().String("settings", config.DefaultSettingsPath, "Display settings file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	mustBind(config.KeySettingsPath, rootCmd.PersistentFlags().Lookup("settings"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the daemon configuration. Local commands stay quiet
// unless a level is requested; serve defaults to the configured level.
func loadConfig(daemonMode bool) (*config.Daemon, error) {
	cfg, err := config.LoadDaemon(settings, configFile)
	if err != nil {
		return nil, err
	}

	level := logLevel
	if level == "" && daemonMode {
		level = cfg.LogLevel
	}
	if err := logging.Initialize(level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("zerostock-cfgd %s\n", version.Full())
	},
}
