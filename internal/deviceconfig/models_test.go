package deviceconfig

import (
	"encoding/json"
	"testing"
)

// TestFormatFloat tests float serialization into the settings file
func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{7, "7.0"},
		{365, "365.0"},
		{0.1, "0.1"},
		{1.5, "1.5"},
		{30.25, "30.25"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in); got != tt.want {
			t.Errorf("FormatFloat(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestValue_String tests the file representation of typed values
func TestValue_String(t *testing.T) {
	if got := IntValue(10).String(); got != "10" {
		t.Errorf("IntValue(10) = %q", got)
	}
	if got := FloatValue(2).String(); got != "2.0" {
		t.Errorf("FloatValue(2) = %q", got)
	}
	if got := StringValue("candle").String(); got != "candle" {
		t.Errorf("StringValue = %q", got)
	}
}

// TestUpdateSet tests ordering and replacement semantics
func TestUpdateSet(t *testing.T) {
	var u UpdateSet
	if !u.Empty() {
		t.Fatal("zero UpdateSet should be empty")
	}

	u.Set(SectionDisplay, KeyMode, StringValue("line"))
	u.Set(SectionBase, KeyTicker, StringValue("ABC"))
	u.Set(SectionBase, KeyRefreshInterval, IntValue(5))
	u.Set(SectionBase, KeyTicker, StringValue("XYZ"))

	if u.Len() != 3 {
		t.Errorf("Len() = %d, want 3", u.Len())
	}

	sections := u.Sections()
	if len(sections) != 2 || sections[0] != SectionDisplay || sections[1] != SectionBase {
		t.Errorf("Sections() = %v", sections)
	}

	base := u.Section(SectionBase)
	if len(base) != 2 || base[0].Key != KeyTicker || base[0].Value.Str != "XYZ" {
		t.Errorf("Section(base) = %+v", base)
	}

	var nilSet *UpdateSet
	if nilSet.Len() != 0 || nilSet.Sections() != nil {
		t.Error("nil UpdateSet should behave as empty")
	}
}

// TestSnapshot_JSON tests that unresolved fields are omitted
func TestSnapshot_JSON(t *testing.T) {
	ticker := "ABC"
	tests := []struct {
		name     string
		snapshot Snapshot
		want     string
	}{
		{"empty", Snapshot{}, `{}`},
		{
			"ticker only",
			Snapshot{Base: &BaseSettings{Ticker: &ticker}},
			`{"base":{"ticker":"ABC"}}`,
		},
		{
			"mixed numeric and raw",
			Snapshot{Base: &BaseSettings{RefreshIntervalMinutes: 5, DataRangeDays: "soon"}},
			`{"base":{"refresh_interval_minutes":5,"data_range_days":"soon"}}`,
		},
		{
			"wifi status only",
			Snapshot{WiFi: &WiFiState{Status: "Unknown"}},
			`{"wifi":{"status":"Unknown"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.snapshot)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}

// TestMaskSecret tests PSK masking for display
func TestMaskSecret_Models(t *testing.T) {
	tests := map[string]string{
		"":         "-",
		"a":        "*",
		"password": "******rd",
	}
	for in, want := range tests {
		if got := MaskSecret(in); got != want {
			t.Errorf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
