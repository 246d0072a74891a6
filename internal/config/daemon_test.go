package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/muurk/zerostock/internal/service"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfgd.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDaemon_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	d, err := LoadDaemon(NewDaemonViper(), "")
	if err != nil {
		t.Fatalf("LoadDaemon() error = %v", err)
	}

	if d.Settings.Path != DefaultSettingsPath {
		t.Errorf("Settings.Path = %q", d.Settings.Path)
	}
	if d.Settings.OwnerUser != "pi" || d.Settings.OwnerGroup != "pi" {
		t.Errorf("owner = %q:%q, want pi:pi", d.Settings.OwnerUser, d.Settings.OwnerGroup)
	}
	if d.Service.Name != service.DefaultName {
		t.Errorf("Service.Name = %q", d.Service.Name)
	}
	if d.Tools.Timeout != 0 {
		t.Errorf("Tools.Timeout = %v, want 0", d.Tools.Timeout)
	}
	if d.Listen.Port != 8080 || !d.Advertise.Enabled || !d.Watch.Enabled {
		t.Errorf("listen/advertise/watch defaults = %+v %+v %+v", d.Listen, d.Advertise, d.Watch)
	}

	target := d.Target()
	if target.NewFileMode != 0644 {
		t.Errorf("Target().NewFileMode = %o, want 0644", target.NewFileMode)
	}
	if opts := d.WiFiOptions(); opts.Interface != "wlan0" {
		t.Errorf("WiFiOptions().Interface = %q", opts.Interface)
	}
}

func TestLoadDaemon_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
settings:
  path: /srv/display/configuration.cfg
  new_file_mode: 0640
service:
  name: display.service
tools:
  timeout: 30s
listen:
  port: 9000
advertise:
  enabled: false
`)
	t.Setenv("ZEROSTOCK_SERVICE_NAME", "from-env.service")
	t.Setenv("ZEROSTOCK_WIFI_INTERFACE", "wlan1")

	d, err := LoadDaemon(NewDaemonViper(), path)
	if err != nil {
		t.Fatalf("LoadDaemon() error = %v", err)
	}

	if d.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", d.ConfigFile, path)
	}
	if d.Settings.Path != "/srv/display/configuration.cfg" {
		t.Errorf("Settings.Path = %q", d.Settings.Path)
	}
	if mode, _ := d.NewFileMode(); mode != 0640 {
		t.Errorf("NewFileMode() = %o, want 0640 from unquoted YAML octal", mode)
	}
	if d.Service.Name != "from-env.service" {
		t.Errorf("Service.Name = %q, environment should win over file", d.Service.Name)
	}
	if d.WiFi.Interface != "wlan1" {
		t.Errorf("WiFi.Interface = %q", d.WiFi.Interface)
	}
	if d.Tools.Timeout != 30*time.Second {
		t.Errorf("Tools.Timeout = %v, want 30s", d.Tools.Timeout)
	}
	if d.Listen.Port != 9000 || d.Advertise.Enabled {
		t.Errorf("listen/advertise = %+v %+v", d.Listen, d.Advertise)
	}
}

func TestLoadDaemon_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad mode", "settings:\n  new_file_mode: \"rw-r--r--\"\n"},
		{"mode too wide", "settings:\n  new_file_mode: \"7777\"\n"},
		{"cert without key", "listen:\n  cert: /etc/zerostock/cert.pem\n"},
		{"empty settings path", "settings:\n  path: \"\"\n"},
		{"port out of range", "listen:\n  port: 70000\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadDaemon(NewDaemonViper(), writeConfig(t, tt.content)); err == nil {
				t.Error("LoadDaemon() error = nil, want error")
			}
		})
	}

	t.Run("explicit file missing", func(t *testing.T) {
		if _, err := LoadDaemon(NewDaemonViper(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("LoadDaemon() should fail when an explicit file is missing")
		}
	})
}
