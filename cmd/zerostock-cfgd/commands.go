package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/cfgfile"
	"github.com/muurk/zerostock/internal/config"
	"github.com/muurk/zerostock/internal/deviceconfig"
	"github.com/muurk/zerostock/internal/logging"
	"github.com/muurk/zerostock/internal/protocol"
	"github.com/muurk/zerostock/internal/server"
	"github.com/muurk/zerostock/internal/service"
	"github.com/muurk/zerostock/internal/syscmd"
	"github.com/muurk/zerostock/internal/ui"
	"github.com/muurk/zerostock/internal/version"
	"github.com/muurk/zerostock/internal/wifi"
)

// maxApplyInput bounds a request read from stdin or an argument.
const maxApplyInput = 1 << 20

func mustBind(key string, flag *pflag.Flag) {
	if err := settings.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind %s: %v", key, err))
	}
}

// daemon holds the collaborators built from one configuration.
type daemon struct {
	cfg       *config.Daemon
	runner    syscmd.Runner
	patcher   *cfgfile.Patcher
	restarter *service.Restarter
	handler   *protocol.Handler
}

func newDaemon(cfg *config.Daemon, runner syscmd.Runner) *daemon {
	patcher := cfgfile.New(cfg.Target())
	restarter := service.NewRestarter(runner, cfg.Service.Name)
	opts := cfg.WiFiOptions()
	handler := protocol.NewHandler(
		patcher,
		wifi.NewReader(runner, opts),
		wifi.NewProvisioner(runner, opts),
		restarter,
	)
	return &daemon{
		cfg:       cfg,
		runner:    runner,
		patcher:   patcher,
		restarter: restarter,
		handler:   handler,
	}
}

// Serve command and flags
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the configuration daemon",
	Long: `Serve read and write requests over HTTP and WebSocket.

Endpoints:
  GET  /config[?offset=N]   current settings and wireless state as JSON
  POST /config              apply a write request, replies "ok" or "error: <reason>"
  GET  /ws                  websocket; every frame is a write request and every
                            status is sent to all connected clients

TLS is enabled when both --cert and --key are given. The daemon registers
a _zerostock._tcp mDNS service unless --advertise=false.`,
	Example: `  # Serve with the defaults from /etc/zerostock/cfgd.yaml
  zerostock-cfgd serve

  # Serve on another port with debug logging
  zerostock-cfgd serve --port 9090 --log-level debug

  # Serve over HTTPS
  zerostock-cfgd serve --cert /etc/zerostock/cert.pem --key /etc/zerostock/key.pem`,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.String("host", "", "Listen address (empty = all interfaces)")
	flags.Int("port", 8080, "Listen port")
	flags.String("cert", "", "Path to TLS certificate file")
	flags.String("key", "", "Path to TLS private key file")
	flags.Bool("advertise", true, "Register the daemon over mDNS")
	flags.String("instance", "ZeroStock Config", "mDNS instance name")
	flags.Bool("watch", true, "Log edits of the settings file made by other processes")
	flags.Duration("tool-timeout", 0, "Timeout for each external tool (0 = none)")

	mustBind(config.KeyListenHost, flags.Lookup("host"))
	mustBind(config.KeyListenPort, flags.Lookup("port"))
	mustBind(config.KeyListenCert, flags.Lookup("cert"))
	mustBind(config.KeyListenKey, flags.Lookup("key"))
	mustBind(config.KeyAdvertiseEnabled, flags.Lookup("advertise"))
	mustBind(config.KeyAdvertiseInstance, flags.Lookup("instance"))
	mustBind(config.KeyWatchEnabled, flags.Lookup("watch"))
	mustBind(config.KeyToolsTimeout, flags.Lookup("tool-timeout"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}

	if cfg.Listen.Cert != "" {
		if _, err := os.Stat(cfg.Listen.Cert); err != nil {
			return fmt.Errorf("certificate file not found: %s", cfg.Listen.Cert)
		}
		if _, err := os.Stat(cfg.Listen.Key); err != nil {
			return fmt.Errorf("private key file not found: %s", cfg.Listen.Key)
		}
	}

	d := newDaemon(cfg, syscmd.NewExecRunner(cfg.Tools.Timeout))

	srv, err := server.New(&server.Config{
		Host:      cfg.Listen.Host,
		Port:      cfg.Listen.Port,
		CertPath:  cfg.Listen.Cert,
		KeyPath:   cfg.Listen.Key,
		Advertise: cfg.Advertise.Enabled,
		Instance:  cfg.Advertise.Instance,
		Version:   version.Version,
	}, d.handler)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.Watch.Enabled {
		watcher := cfgfile.NewWatcher(cfg.Settings.Path)
		d.patcher.OnCommit(watcher)
		srv.WatchSettings(watcher)
	}

	logging.Info("Starting config daemon",
		zap.String("version", version.Version),
		zap.String("config_file", cfg.ConfigFile),
		zap.String("settings", cfg.Settings.Path),
		zap.String("service", cfg.Service.Name),
		zap.String("interface", cfg.WiFi.Interface),
	)

	return srv.Start()
}

// Show command
var (
	showFormat  string
	showSecrets bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings and wireless state",
	Long: `Print the snapshot a remote client would receive from GET /config.

The json format is exactly the bytes the daemon serves. The detailed format
renders the same snapshot for reading, with the PSK masked unless
--show-psk is given.`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFormat, "format", "json", "Output format (json, detailed)")
	showCmd.Flags().BoolVar(&showSecrets, "show-psk", false, "Show the wireless PSK in detailed output")
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	d := newDaemon(cfg, syscmd.NewExecRunner(cfg.Tools.Timeout))
	ctx := commandContext(cmd)

	switch showFormat {
	case "json":
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(d.handler.HandleRead(ctx, 0)))
		return err
	case "detailed":
		snap := d.handler.Snapshot(ctx)
		printer := ui.NewPrinter(cmd.OutOrStdout())
		printer.Println(ui.RenderSnapshot(&snap, printer.Width(), showSecrets))
		return nil
	default:
		return fmt.Errorf("invalid format: %s (must be json or detailed)", showFormat)
	}
}

// Apply command
var applyCmd = &cobra.Command{
	Use:   "apply <json|->",
	Short: "Run one write request locally",
	Long: `Run one write request through the same pipeline as the network
endpoints and print its status. Use "-" to read the request from stdin.

The command exits with status 1 when the reply is "error: <reason>".`,
	Example: `  zerostock-cfgd apply '{"base":{"ticker":"BTC-USD","refresh_interval_minutes":15}}'
  echo '{"epd2in13v3":{"mode":"line"},"restart":true}' | zerostock-cfgd apply -`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	data, err := readRequest(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	d := newDaemon(cfg, syscmd.NewExecRunner(cfg.Tools.Timeout))

	logging.Debug("Applying local request", zap.String("request", redactRequest(data)))
	status := d.handler.HandleWrite(commandContext(cmd), data)
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), status); err != nil {
		return err
	}
	if protocol.IsError(status) {
		return errStatusFailed
	}
	return nil
}

func readRequest(in io.Reader, arg string) ([]byte, error) {
	if arg != "-" {
		return []byte(arg), nil
	}
	data, err := io.ReadAll(io.LimitReader(in, maxApplyInput+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request: %w", err)
	}
	if len(data) > maxApplyInput {
		return nil, fmt.Errorf("request larger than %d bytes", maxApplyInput)
	}
	return data, nil
}

// Restore command
var restoreRestart bool

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Swap the settings file with its backup",
	Long: `Every write keeps the previous settings file next to it with a .bak
suffix. Restore swaps the two, so running it twice returns to where it
started.`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreRestart, "restart", false, "Restart the display service afterwards")
}

func runRestore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	d := newDaemon(cfg, syscmd.NewExecRunner(cfg.Tools.Timeout))

	res, err := d.patcher.Restore()
	if err != nil {
		return fmt.Errorf("restore failed: %s", deviceconfig.StatusMessage(err))
	}
	for _, o := range res.Outcomes {
		o.Log()
	}

	details := map[string]string{
		"Settings": res.Path,
		"Backup":   res.Path + cfgfile.BackupSuffix,
	}
	if restoreRestart {
		if err := d.restarter.Restart(commandContext(cmd)); err != nil {
			return fmt.Errorf("restart failed: %s", service.Reason(err))
		}
		details["Restarted"] = d.restarter.Name()
	}

	ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Settings restored from backup", details)
	return nil
}

// Doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the external tools and files the daemon relies on",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}

	checks := syscmd.CheckTools(syscmd.NewExecRunner(cfg.Tools.Timeout))
	details := make(map[string]string, len(checks)+2)
	var missing []string
	for _, c := range checks {
		if c.Available {
			details[c.Name] = c.Path
			continue
		}
		details[c.Name] = "missing (" + c.Purpose + ")"
		missing = append(missing, c.Name)
	}
	details["settings file"] = fileState(cfg.Settings.Path)
	details["supplicant file"] = fileState(cfg.WiFi.SupplicantPath)

	printer := ui.NewPrinter(cmd.OutOrStdout())
	if len(missing) == 0 {
		printer.PrintSuccess("All tools available", details)
		return nil
	}
	printer.Println(ui.NewWarningResult(
		fmt.Sprintf("Missing tools: %s", strings.Join(missing, ", ")), details,
	).SetWidth(printer.Width()).Render())
	return nil
}

func fileState(path string) string {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return path + " (not found)"
	case err != nil:
		return path + " (" + err.Error() + ")"
	default:
		return fmt.Sprintf("%s (%s)", path, info.Mode().Perm())
	}
}

// commandContext returns the command's context, or a background context
// when it was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// redactRequest re-encodes a request for logging with the wifi PSK masked.
func redactRequest(data []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if w, ok := payload["wifi"].(map[string]any); ok {
		if _, ok := w["psk"]; ok {
			w["psk"] = deviceconfig.MaskSecret(fmt.Sprint(w["psk"]))
		}
	}
	out, _ := json.Marshal(payload)
	return string(out)
}
