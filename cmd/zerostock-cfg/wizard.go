package main

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/config"
	"github.com/muurk/zerostock/internal/deviceconfig"
	"github.com/muurk/zerostock/internal/discovery"
	"github.com/muurk/zerostock/internal/logging"
	"github.com/muurk/zerostock/internal/ui"
	"github.com/muurk/zerostock/internal/wizard/tui"
)

// wizardCmd launches the interactive TUI wizard
var wizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Launch interactive configuration wizard",
	Long: `Launch an interactive TUI wizard for display configuration.

The wizard finds displays on the network, shows their settings and
wireless state, and applies edits with the same validation as 'set'.

This is the recommended way to configure displays for most users.`,
	Example: `  # Launch wizard with auto-discovery
  zerostock-cfg wizard
  # Or simply (wizard is default):
  zerostock-cfg

  # Open a specific display
  zerostock-cfg wizard --device 192.168.1.40`,
	Args: cobra.NoArgs,
	RunE: runWizard,
}

func init() {
	rootCmd.RunE = runWizard
	rootCmd.AddCommand(wizardCmd)
}

func runWizard(cmd *cobra.Command, args []string) error {
	if !ui.IsInteractive() {
		return errors.New("the wizard needs a terminal; use 'zerostock-cfg show' or 'set' instead")
	}

	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}
	scanner := newScanner(reg)

	opts := tui.Options{
		Scan:        scanner.ScanForDevices,
		ScanTimeout: scanner.Timeout,
		NewClient: func(d *discovery.Device) *deviceconfig.Client {
			c := deviceconfig.NewClient(d.ConfigURL(), d.WebSocketURL())
			if insecure {
				c.SetInsecure(true)
			}
			return c
		},
		OnSelect: func(d *discovery.Device) {
			key := reg.RecordDiscovery(d)
			reg.UseDevice(key)
			if err := reg.Save(); err != nil {
				logging.Warn("Failed to remember device", zap.Error(err))
			}
		},
	}

	if deviceRef != "" {
		target, err := resolveDevice(cmd)
		if err != nil {
			return err
		}
		opts.Device = target.device.Target()
		if err := target.markUsed(); err != nil {
			return err
		}
	}

	p := tea.NewProgram(tui.NewAppModel(opts), tea.WithAltScreen(), tea.WithContext(commandContext(cmd)))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("wizard error: %w", err)
	}
	return nil
}
