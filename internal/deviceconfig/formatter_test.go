package deviceconfig

import (
	"strings"
	"testing"
)

func sampleSnapshot() *Snapshot {
	ticker := "BTC-USD"
	api := "https://api.example.com"
	mode := "candle"
	return &Snapshot{
		Base: &BaseSettings{
			RefreshIntervalMinutes: 15,
			DataRangeDays:          7.0,
			DataAPIBaseURL:         &api,
			Ticker:                 &ticker,
		},
		Display: &DisplaySettings{Mode: &mode},
		WiFi:    &WiFiState{SSID: "home", PSK: "hunter22", Status: "Connected to home (signal 70%)"},
	}
}

func TestSnapshot_Summary(t *testing.T) {
	summary := sampleSnapshot().Summary()
	if strings.Contains(summary, "\n") {
		t.Error("Summary() should return a single line")
	}
	want := "BTC-USD (candle) - Connected to home (signal 70%)"
	if summary != want {
		t.Errorf("Summary() = %q, want %q", summary, want)
	}

	if got := (&Snapshot{}).Summary(); got != "? (?) - Unknown" {
		t.Errorf("empty Summary() = %q", got)
	}
}

func TestSnapshot_FormatDetailed(t *testing.T) {
	out := sampleSnapshot().FormatDetailed()

	for _, part := range []string{"BTC-USD", "15 min", "7.0 days", "https://api.example.com", "Mode: candle", "SSID:   home"} {
		if !strings.Contains(out, part) {
			t.Errorf("FormatDetailed() missing %q", part)
		}
	}
	if strings.Contains(out, "hunter22") {
		t.Error("FormatDetailed() must mask the PSK")
	}

	empty := (&Snapshot{}).FormatDetailed()
	if !strings.Contains(empty, "(not configured)") || !strings.Contains(empty, "(unknown)") {
		t.Errorf("empty FormatDetailed() = %q", empty)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "-"},
		{"ab", "**"},
		{"hunter22", "******22"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    any
		unit string
		want string
	}{
		{nil, " min", "-"},
		{15, " min", "15 min"},
		{7.0, " days", "7.0 days"},
		{0.5, " days", "0.5 days"},
		{"abc", " min", `"abc" (unparsed)`},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.v, tt.unit); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}
