package wifi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/zerostock/internal/deviceconfig"
	"github.com/muurk/zerostock/internal/syscmd"
)

var homeCreds = deviceconfig.WiFiCredentials{SSID: "Home", PSK: "new-secret"}

const homeBlock = "network={\n\tssid=\"Home\"\n\t#psk=\"new-secret\"\n\tpsk=abcdef0123\n}\n"

func TestProvision_Nmcli(t *testing.T) {
	runner := syscmd.NewFakeRunner("nmcli", "wpa_passphrase", "wpa_cli").
		On(syscmd.FakeResponse{Stdout: "Device 'wlan0' successfully activated"},
			"nmcli", "dev", "wifi", "connect", "Home", "password", "new-secret", "ifname", "wlan1")

	got, err := NewProvisioner(runner, Options{Interface: "wlan1"}).Provision(context.Background(), homeCreds)
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if got != "connected" {
		t.Errorf("Provision() = %q, want connected", got)
	}
	if runner.Ran("wpa_passphrase") {
		t.Error("fallback must not run when nmcli is installed")
	}
}

func TestProvision_NmcliFailureDoesNotFallBack(t *testing.T) {
	tests := []struct {
		name string
		resp syscmd.FakeResponse
		want string
	}{
		{"stderr reason", syscmd.FakeResponse{ExitCode: 4, Stderr: "Error: No network with SSID 'Home' found.\n"}, "Error: No network with SSID 'Home' found."},
		{"silent failure", syscmd.FakeResponse{ExitCode: 4}, "nmcli failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := syscmd.NewFakeRunner("nmcli", "wpa_passphrase", "wpa_cli").
				On(tt.resp, "nmcli", "dev", "wifi", "connect", "Home", "password", "new-secret", "ifname", "wlan0")

			_, err := NewProvisioner(runner, Options{}).Provision(context.Background(), homeCreds)
			var perr *ProvisionError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProvisionError, got %T: %v", err, err)
			}
			if perr.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", perr.Reason, tt.want)
			}
			if runner.Ran("wpa_passphrase") {
				t.Error("fallback must only run when nmcli is missing")
			}
		})
	}
}

func TestProvision_SupplicantFallbackReplaces(t *testing.T) {
	path := writeSupplicant(t, sampleSupplicant)
	if err := os.Chmod(path, 0o640); err != nil {
		t.Fatalf("Chmod() error = %v", err)
	}

	runner := syscmd.NewFakeRunner("wpa_passphrase", "wpa_cli").
		On(syscmd.FakeResponse{Stdout: homeBlock}, "wpa_passphrase", "Home", "new-secret").
		On(syscmd.FakeResponse{Stdout: "OK\n"}, "wpa_cli", "-i", "wlan0", "reconfigure")

	got, err := NewProvisioner(runner, Options{SupplicantPath: path}).Provision(context.Background(), homeCreds)
	if err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	if got != "reconfigured" {
		t.Errorf("Provision() = %q, want reconfigured", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)
	if n := strings.Count(content, `ssid="Home"`); n != 1 {
		t.Errorf("Home block appears %d times, want 1:\n%s", n, content)
	}
	if strings.Contains(content, "home-secret") || strings.Contains(content, "0123456789abcdef") {
		t.Errorf("old Home block fields survived:\n%s", content)
	}
	if psk, _ := FindPSK(content, "Home"); psk != "new-secret" {
		t.Errorf("FindPSK() = %q", psk)
	}
	if !strings.Contains(content, `ssid="Cafe Wifi"`) {
		t.Error("unrelated network removed")
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if fi.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", fi.Mode().Perm())
	}

	// provisioning the same network again must still leave one block
	if _, err := NewProvisioner(runner, Options{SupplicantPath: path}).Provision(context.Background(), homeCreds); err != nil {
		t.Fatalf("second Provision() error = %v", err)
	}
	data, _ = os.ReadFile(path)
	if n := strings.Count(string(data), `ssid="Home"`); n != 1 {
		t.Errorf("after second run Home block appears %d times", n)
	}
}

func TestProvision_SupplicantFallbackNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wpa_supplicant.conf")
	runner := syscmd.NewFakeRunner("wpa_passphrase", "wpa_cli").
		On(syscmd.FakeResponse{Stdout: homeBlock}, "wpa_passphrase", "Home", "new-secret").
		On(syscmd.FakeResponse{Stdout: "OK\n"}, "wpa_cli", "-i", "wlan0", "reconfigure")

	if _, err := NewProvisioner(runner, Options{SupplicantPath: path}).Provision(context.Background(), homeCreds); err != nil {
		t.Fatalf("Provision() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "\n"+strings.TrimSpace(homeBlock)+"\n" {
		t.Errorf("content = %q", data)
	}
	fi, _ := os.Stat(path)
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", fi.Mode().Perm())
	}
}

func TestProvision_FallbackFailures(t *testing.T) {
	tests := []struct {
		name   string
		runner func() *syscmd.FakeRunner
		want   string
	}{
		{
			name:   "no tools at all",
			runner: func() *syscmd.FakeRunner { return syscmd.NewFakeRunner() },
			want:   "wpa_passphrase not available",
		},
		{
			name: "wpa_passphrase rejects psk",
			runner: func() *syscmd.FakeRunner {
				return syscmd.NewFakeRunner("wpa_passphrase", "wpa_cli").
					On(syscmd.FakeResponse{ExitCode: 1, Stdout: "Passphrase must be 8..63 characters\n"}, "wpa_passphrase", "Home", "new-secret")
			},
			want: "Passphrase must be 8..63 characters",
		},
		{
			name: "wpa_cli missing",
			runner: func() *syscmd.FakeRunner {
				return syscmd.NewFakeRunner("wpa_passphrase").
					On(syscmd.FakeResponse{Stdout: homeBlock}, "wpa_passphrase", "Home", "new-secret")
			},
			want: "command not found: wpa_cli",
		},
		{
			name: "wpa_cli fails silently",
			runner: func() *syscmd.FakeRunner {
				return syscmd.NewFakeRunner("wpa_passphrase", "wpa_cli").
					On(syscmd.FakeResponse{Stdout: homeBlock}, "wpa_passphrase", "Home", "new-secret").
					On(syscmd.FakeResponse{ExitCode: 255}, "wpa_cli", "-i", "wlan0", "reconfigure")
			},
			want: "wpa_cli reconfigure failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeSupplicant(t, sampleSupplicant)
			_, err := NewProvisioner(tt.runner(), Options{SupplicantPath: path}).Provision(context.Background(), homeCreds)
			var perr *ProvisionError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ProvisionError, got %T: %v", err, err)
			}
			if perr.Reason != tt.want {
				t.Errorf("Reason = %q, want %q", perr.Reason, tt.want)
			}
		})
	}
}
