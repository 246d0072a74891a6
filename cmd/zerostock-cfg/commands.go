package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/zerostock/internal/config"
	"github.com/muurk/zerostock/internal/deviceconfig"
	"github.com/muurk/zerostock/internal/discovery"
	"github.com/muurk/zerostock/internal/protocol"
	"github.com/muurk/zerostock/internal/ui"
)

// maxRequestInput bounds a request read from stdin.
const maxRequestInput = 8192

// Common flags for device commands
var (
	deviceRef    string
	scanTimeout  int
	outputFormat string
	insecure     bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceRef, "device", "", "Device name, nickname or host[:port] (default: last used)")
	rootCmd.PersistentFlags().IntVar(&scanTimeout, "timeout", 0, "Discovery timeout in seconds (default from preferences)")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "Accept self-signed daemon certificates")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(nicknameCmd)
}

// scanCmd discovers daemons on the network
var (
	scanInstance string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for ZeroStock displays on the network",
	Long: `Scan for config daemons using mDNS/DNS-SD discovery.

Every daemon found is remembered, so later commands can refer to it by its
hostname or a nickname.`,
	Example: `  # Scan with the default timeout
  zerostock-cfg scan

  # Longer scan for slow networks
  zerostock-cfg scan --timeout 15

  # Wait for one display by its instance name
  zerostock-cfg scan --instance "Kitchen Ticker"`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanInstance, "instance", "", "Wait for the daemon with this mDNS instance name")
}

func runScan(cmd *cobra.Command, args []string) error {
	reg, err := config.LoadRegistry()
	if err != nil {
		return err
	}

	scanner := newScanner(reg)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning for ZeroStock displays (timeout: %s)...\n\n", scanner.Timeout)

	var devices []*discovery.Device
	if scanInstance != "" {
		d, err := scanner.WaitForDevice(commandContext(cmd), scanInstance)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		devices = append(devices, d)
	} else {
		devices, err = scanner.ScanForDevices(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
	}

	if len(devices) == 0 {
		fmt.Fprintln(out, "No displays found.")
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - Ensure the display is powered on and zerostock-cfgd is running")
		fmt.Fprintln(out, "  - Verify your computer is on the same network")
		fmt.Fprintln(out, "  - Try increasing --timeout for slower networks")
		fmt.Fprintln(out, "  - Use --device host:port to skip discovery")
		return nil
	}

	fmt.Fprintf(out, "Found %d display(s):\n\n", len(devices))
	for i, d := range devices {
		key := reg.RecordDiscovery(d)
		fmt.Fprintf(out, "%d. %s\n", i+1, d.Instance)
		fmt.Fprintf(out, "   Name:    %s\n", key)
		fmt.Fprintf(out, "   Address: %s\n", d.Address())
		if v := d.GetMetadata(discovery.TxtVersion); v != "" {
			fmt.Fprintf(out, "   Version: %s\n", v)
		}
		if d.GetMetadata(discovery.TxtTLS) == "1" {
			fmt.Fprintln(out, "   TLS:     yes")
		}
		fmt.Fprintln(out)
	}

	if err := reg.Save(); err != nil {
		return err
	}

	fmt.Fprintln(out, "Use 'zerostock-cfg show --device <name>' to view a display's settings")
	return nil
}

// showCmd displays current settings
var showSecret bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show display settings",
	Long: `Display the current settings and wireless state of a ZeroStock display.

The PSK is masked unless --show-psk is given.`,
	Example: `  # Show the last used display
  zerostock-cfg show

  # Show a specific display
  zerostock-cfg show --device 192.168.1.40

  # JSON output for scripting
  zerostock-cfg show --format json`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	showCmd.Flags().BoolVar(&showSecret, "show-psk", false, "Show the wireless PSK")
}

func runShow(cmd *cobra.Command, args []string) error {
	if outputFormat != "detailed" && outputFormat != "json" {
		return fmt.Errorf("invalid format: %s (must be detailed or json)", outputFormat)
	}

	target, err := resolveDevice(cmd)
	if err != nil {
		return err
	}

	snap, err := target.client.GetSnapshot(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if err := target.markUsed(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		if !showSecret && snap.WiFi != nil && snap.WiFi.PSK != "" {
			snap.WiFi.PSK = deviceconfig.MaskSecret(snap.WiFi.PSK)
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	printer := ui.NewPrinter(out)
	printer.PrintHeader("Display Settings", "zerostock-cfg show", map[string]string{
		"Device": target.label(),
	})
	printer.Println(ui.RenderSnapshot(snap, printer.Width(), showSecret))
	return nil
}

// setCmd changes settings
var (
	setTicker    string
	setRefresh   int
	setRange     float64
	setAPIURL    string
	setMode      string
	setSSID      string
	setPSK       string
	setRestart   bool
	setYes       bool
	setNoVerify  bool
	setVerifyTry int
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change display settings",
	Long: `Change one or more settings of a ZeroStock display.

Only the options given are changed; everything else in the display's
settings file is left as it is. The request is validated locally before it
is sent. Changing the wireless network asks for confirmation unless --yes
is given, and asks for the PSK when --ssid is given without --psk.`,
	Example: `  # Change the ticker and refresh every 15 minutes
  zerostock-cfg set --ticker BTC-USD --refresh 15

  # Switch to a line chart over 30 days and restart the display
  zerostock-cfg set --mode line --range-days 30 --restart

  # Move the display to another network
  zerostock-cfg set --ssid HomeWiFi`,
	RunE: runSet,
}

func init() {
	f := setCmd.Flags()
	f.StringVar(&setTicker, "ticker", "", "Ticker symbol")
	f.IntVar(&setRefresh, "refresh", 0, "Refresh interval in minutes (1-1440)")
	f.Float64Var(&setRange, "range-days", 0, "Data range in days (0.1-365)")
	f.StringVar(&setAPIURL, "api-url", "", "Data API base URL")
	f.StringVar(&setMode, "mode", "", "Display mode (candle, line)")
	f.StringVar(&setSSID, "ssid", "", "Wireless network to join")
	f.StringVar(&setPSK, "psk", "", "Wireless passphrase (prompted when omitted)")
	f.BoolVar(&setRestart, "restart", false, "Restart the display service afterwards")
	f.BoolVarP(&setYes, "yes", "y", false, "Do not ask for confirmation")
	f.BoolVar(&setNoVerify, "no-verify", false, "Skip reading the settings back after the update")
	f.IntVar(&setVerifyTry, "retries", 3, "Number of verification retries")
}

// buildSetRequest collects the flags that were given into a request.
func buildSetRequest(cmd *cobra.Command) *deviceconfig.RequestBuilder {
	flags := cmd.Flags()
	b := deviceconfig.NewRequestBuilder()
	if flags.Changed("ticker") {
		b.SetTicker(setTicker)
	}
	if flags.Changed("refresh") {
		b.SetRefreshInterval(setRefresh)
	}
	if flags.Changed("range-days") {
		b.SetDataRangeDays(setRange)
	}
	if flags.Changed("api-url") {
		b.SetDataAPIBaseURL(setAPIURL)
	}
	if flags.Changed("mode") {
		b.SetMode(setMode)
	}
	if flags.Changed("ssid") {
		b.SetWiFi(setSSID, setPSK)
	}
	if setRestart {
		b.SetRestart(true)
	}
	return b
}

func runSet(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("ssid") && !cmd.Flags().Changed("psk") {
		psk, err := ui.ReadSecret(fmt.Sprintf("Passphrase for %q: ", setSSID))
		if err != nil {
			return err
		}
		setPSK = psk
	}

	builder := buildSetRequest(cmd)
	if !builder.HasChanges() {
		return errors.New("nothing to change (see 'zerostock-cfg set --help')")
	}
	payload, req, err := builder.Build()
	if err != nil {
		return fmt.Errorf("invalid request: %s", deviceconfig.StatusMessage(err))
	}

	target, err := resolveDevice(cmd)
	if err != nil {
		return err
	}

	if req.WiFi != nil && !setYes {
		if !ui.ConfirmWiFiChange(cmd.InOrStdin(), cmd.OutOrStdout(), req.WiFi.SSID) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	params := map[string]string{"Device": target.label()}
	for _, up := range req.Updates.Updates() {
		params[up.Key] = up.Value.String()
	}
	if req.WiFi != nil {
		params["ssid"] = req.WiFi.SSID
	}
	if req.Restart {
		params["restart"] = "yes"
	}

	ctx := commandContext(cmd)
	runner := ui.NewRunner(ui.RunnerConfig{
		Title:     "Update Settings",
		Command:   "zerostock-cfg set",
		Params:    params,
		StepNames: []string{"Validate request", "Send to display", "Verify settings"},
		Troubleshooting: []string{
			"Check the display is reachable: zerostock-cfg show",
			"Run 'zerostock-cfg scan' if its address changed",
		},
		Output: cmd.OutOrStdout(),
	})

	_, err = runner.Run(func(onStep ui.StepCallback) (map[string]string, error) {
		onStep(1, "", ui.StepComplete, fmt.Sprintf("%d setting(s)", req.Updates.Len()))

		onStep(2, "", ui.StepRunning, "")
		status, err := ui.WaitForStatus(ctx, cmd.OutOrStdout(), "Waiting for the display...", func(ctx context.Context) (string, error) {
			return target.client.Apply(ctx, payload)
		})
		if err != nil {
			onStep(2, "", ui.StepFailed, "")
			return nil, err
		}
		if protocol.IsError(status) {
			onStep(2, "", ui.StepFailed, "")
			return nil, &ui.StatusError{Status: status}
		}
		onStep(2, "", ui.StepComplete, status)

		details := map[string]string{"Device": target.label(), "Status": status}

		if setNoVerify || req.Updates.Empty() {
			onStep(3, "", ui.StepSkipped, "")
			return details, nil
		}
		onStep(3, "", ui.StepRunning, "")
		opts := deviceconfig.DefaultVerificationOptions()
		opts.MaxRetries = setVerifyTry
		result := target.client.VerifyApplied(ctx, req.Updates, opts)
		if !result.Success {
			onStep(3, "", ui.StepFailed, "")
			return details, result.Error
		}
		onStep(3, "", ui.StepComplete, fmt.Sprintf("%d attempt(s)", result.Attempts))
		return details, nil
	})
	if err != nil {
		return err
	}
	return target.markUsed()
}

// sendCmd sends a raw request
var sendCmd = &cobra.Command{
	Use:   "send <json|->",
	Short: "Send a raw write request",
	Long: `Send a write request exactly as given and print the display's status.
Use "-" to read the request from stdin. The request is not validated
locally, so this also shows how the daemon rejects bad input.`,
	Example: `  zerostock-cfg send '{"base":{"ticker":"ETH-USD"},"restart":true}'`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	body := []byte(args[0])
	if args[0] == "-" {
		data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxRequestInput+1))
		if err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}
		if len(data) > maxRequestInput {
			return fmt.Errorf("request larger than %d bytes", maxRequestInput)
		}
		body = data
	}

	target, err := resolveDevice(cmd)
	if err != nil {
		return err
	}

	status, err := ui.WaitForStatus(commandContext(cmd), cmd.OutOrStdout(), "Waiting for the display...", func(ctx context.Context) (string, error) {
		return target.client.Send(ctx, body)
	})
	if err != nil {
		return err
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintStatus(status, map[string]string{"Device": target.label()})
	if protocol.IsError(status) {
		return errors.New(protocol.ErrorReason(status))
	}
	return target.markUsed()
}

// devicesCmd lists remembered daemons
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List remembered displays",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(reg.Devices) == 0 {
			fmt.Fprintln(out, "No displays remembered. Run 'zerostock-cfg scan' first.")
			return nil
		}

		keys := make([]string, 0, len(reg.Devices))
		for k := range reg.Devices {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			d := reg.Devices[k]
			marker := " "
			if k == reg.LastDevice {
				marker = "*"
			}
			name := k
			if d.Nickname != "" {
				name = fmt.Sprintf("%s (%s)", d.Nickname, k)
			}
			seen := "-"
			if !d.LastSeen.IsZero() {
				seen = d.LastSeen.Local().Format(time.DateTime)
			}
			fmt.Fprintf(out, "%s %-40s %-22s %s\n", marker, name, d.Address, seen)
		}
		return nil
	},
}

var nicknameCmd = &cobra.Command{
	Use:   "nickname <device> <nickname>",
	Short: "Give a remembered display a nickname",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := config.LoadRegistry()
		if err != nil {
			return err
		}
		key, d, ok := reg.Resolve(args[0])
		if !ok {
			return fmt.Errorf("unknown device: %s", args[0])
		}
		if reg.GetDevice(key) == nil {
			reg.EnsureDevice(key).Address = d.Address
		}
		reg.SetDeviceNickname(key, args[1])
		if err := reg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %q\n", key, args[1])
		return nil
	},
}

// target is a resolved daemon with a client ready to use.
type target struct {
	reg    *config.Registry
	key    string
	device *config.Device
	client *deviceconfig.Client
}

func (t *target) label() string {
	if t.device.Nickname != "" {
		return fmt.Sprintf("%s (%s)", t.device.Nickname, t.device.Address)
	}
	if t.key != t.device.Address {
		return fmt.Sprintf("%s (%s)", t.key, t.device.Address)
	}
	return t.device.Address
}

// markUsed remembers the daemon as the default for later commands.
func (t *target) markUsed() error {
	if t.reg.GetDevice(t.key) == nil {
		*t.reg.EnsureDevice(t.key) = *t.device
	}
	t.reg.UseDevice(t.key)
	return t.reg.Save()
}

// resolveDevice picks the daemon named by --device, else the last used
// one, else the only daemon found by a discovery scan.
func resolveDevice(cmd *cobra.Command) (*target, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return nil, err
	}

	key, device, ok := reg.Resolve(deviceRef)
	if !ok && deviceRef != "" && !strings.Contains(deviceRef, ":") {
		key, device, ok = reg.Resolve(net.JoinHostPort(deviceRef, strconv.Itoa(discovery.DefaultPort)))
	}
	if !ok && deviceRef != "" {
		return nil, fmt.Errorf("unknown device: %s (run 'zerostock-cfg scan' or use host:port)", deviceRef)
	}

	if !ok {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "No device specified, attempting auto-discovery...")
		devices, err := newScanner(reg).ScanForDevices(commandContext(cmd))
		if err != nil {
			return nil, fmt.Errorf("discovery failed: %w", err)
		}
		if len(devices) == 0 {
			return nil, errors.New("no displays found. Use --device to specify one manually")
		}
		if len(devices) > 1 {
			fmt.Fprintf(out, "Found %d displays:\n", len(devices))
			for i, d := range devices {
				fmt.Fprintf(out, "%d. %s\n", i+1, d)
				reg.RecordDiscovery(d)
			}
			_ = reg.Save()
			return nil, errors.New("multiple displays found. Use --device to specify which one")
		}
		key = reg.RecordDiscovery(devices[0])
		device = reg.GetDevice(key)
		fmt.Fprintf(out, "Found display: %s\n\n", devices[0])
	}

	d := device.Target()
	client := deviceconfig.NewClient(d.ConfigURL(), d.WebSocketURL())
	if insecure {
		client.SetInsecure(true)
	}
	return &target{reg: reg, key: key, device: device, client: client}, nil
}

func newScanner(reg *config.Registry) *discovery.Scanner {
	scanner := discovery.NewScanner()
	switch {
	case scanTimeout > 0:
		scanner.Timeout = time.Duration(scanTimeout) * time.Second
	case reg.Preferences != nil && reg.Preferences.DiscoverTimeout > 0:
		scanner.Timeout = time.Duration(reg.Preferences.DiscoverTimeout) * time.Second
	}
	return scanner
}

// commandContext returns the command's context, or a background context
// when it was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
