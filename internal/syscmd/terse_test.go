package syscmd

import (
	"context"
	"reflect"
	"testing"
)

func TestSplitTerse(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"yes:Home", []string{"yes", "Home"}},
		{"*:Cafe\\: Free:72", []string{"*", "Cafe: Free", "72"}},
		{"no:back\\\\slash", []string{"no", "back\\slash"}},
		{"::", []string{"", "", ""}},
		{"trailing\\", []string{"trailing\\"}},
		{"", []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := SplitTerse(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitTerse(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestTerseRows(t *testing.T) {
	out := "wlan0:connected:wifi\r\n\nbroken line\neth0:unavailable:ethernet\n"
	want := [][]string{
		{"wlan0", "connected", "wifi"},
		{"eth0", "unavailable", "ethernet"},
	}
	if got := TerseRows(out, 3); !reflect.DeepEqual(got, want) {
		t.Errorf("TerseRows() = %q, want %q", got, want)
	}
}

func TestFakeRunner(t *testing.T) {
	f := NewFakeRunner("nmcli").
		On(FakeResponse{Stdout: "yes:Home\n"}, "nmcli", "-t", "-f", "ACTIVE,SSID", "dev", "wifi")

	res, err := f.Run(context.Background(), New("nmcli", "-t", "-f", "ACTIVE,SSID", "dev", "wifi"))
	if err != nil || res.Output() != "yes:Home" {
		t.Fatalf("Run() = %+v, %v", res, err)
	}
	if _, err := f.Run(context.Background(), New("nmcli", "radio")); !IsToolFailure(err) {
		t.Errorf("expected ToolFailureError for unscripted command, got %v", err)
	}
	if _, err := f.Run(context.Background(), New("iwgetid", "-r")); !IsToolUnavailable(err) {
		t.Errorf("expected ToolUnavailableError, got %v", err)
	}
	if !f.Ran("nmcli", "-t") || f.Ran("iwgetid") {
		t.Errorf("Ran() mismatch, calls = %v", f.Calls())
	}
}
