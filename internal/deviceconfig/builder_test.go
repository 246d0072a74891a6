package deviceconfig

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestRequestBuilder tests payload shape and local validation
func TestRequestBuilder(t *testing.T) {
	b := NewRequestBuilder()
	if b.HasChanges() {
		t.Fatal("new builder should have no changes")
	}

	payload, req, err := b.SetTicker(" BTC-USD ").
		SetRefreshInterval(15).
		SetDataRangeDays(7).
		SetMode("Candle").
		SetWiFi("home", "secret123").
		SetRestart(true).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	data, _ := json.Marshal(payload)
	want := `{"base":{"data_range_days":7,"refresh_interval_minutes":15,"ticker":" BTC-USD "},` +
		`"epd2in13v3":{"mode":"Candle"},"restart":true,"wifi":{"psk":"secret123","ssid":"home"}}`
	if string(data) != want {
		t.Errorf("payload = %s\nwant      %s", data, want)
	}

	if v, ok := req.Updates.Get(SectionBase, KeyTicker); !ok || v.Str != "BTC-USD" {
		t.Errorf("ticker = %+v", v)
	}
	if v, ok := req.Updates.Get(SectionBase, KeyDataRange); !ok || v.String() != "7.0" {
		t.Errorf("data_range_days = %+v", v)
	}
	if req.WiFi == nil || req.WiFi.SSID != "home" || !req.Restart {
		t.Errorf("request = %+v", req)
	}

	b.Reset()
	if b.HasChanges() || len(b.Payload()) != 0 {
		t.Error("Reset should clear everything")
	}
}

// TestRequestBuilder_Invalid tests that local validation matches the daemon
func TestRequestBuilder_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		build func(*RequestBuilder)
		want  string
	}{
		{"refresh low", func(b *RequestBuilder) { b.SetRefreshInterval(0) }, "refresh_interval_minutes out of range"},
		{"range high", func(b *RequestBuilder) { b.SetDataRangeDays(400) }, "data_range_days out of range"},
		{"empty ticker", func(b *RequestBuilder) { b.SetTicker("  ") }, "ticker cannot be empty"},
		{"bad mode", func(b *RequestBuilder) { b.SetMode("bar") }, "mode must be candle or line"},
		{"missing psk", func(b *RequestBuilder) { b.SetWiFi("home", "") }, "wifi ssid and psk are required"},
		{"blank ssid", func(b *RequestBuilder) { b.SetWiFi("   ", "pw") }, "wifi ssid cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewRequestBuilder()
			tt.build(b)
			_, _, err := b.Build()
			if !IsValidationError(err) || StatusMessage(err) != tt.want {
				t.Errorf("Build() error = %v, want %q", err, tt.want)
			}
		})
	}
}

// TestCompareSnapshot tests matching written values against a read
func TestCompareSnapshot(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(`{"base":{"refresh_interval_minutes":15,"data_range_days":7,"ticker":"ABC"},"epd2in13v3":{"mode":"line"}}`))
	if err != nil {
		t.Fatal(err)
	}

	matching := &UpdateSet{}
	matching.Set(SectionBase, KeyRefreshInterval, IntValue(15))
	matching.Set(SectionBase, KeyDataRange, FloatValue(7))
	matching.Set(SectionBase, KeyTicker, StringValue("ABC"))
	matching.Set(SectionDisplay, KeyMode, StringValue("line"))
	if got := CompareSnapshot(matching, snap); len(got) != 0 {
		t.Errorf("unexpected mismatches: %v", got)
	}

	differing := &UpdateSet{}
	differing.Set(SectionBase, KeyTicker, StringValue("XYZ"))
	differing.Set(SectionBase, KeyDataAPIBaseURL, StringValue("https://api.example"))
	got := CompareSnapshot(differing, snap)
	if len(got) != 2 {
		t.Fatalf("mismatches = %v, want 2", got)
	}
	if !strings.Contains(got[0], "expected XYZ, got ABC") || !strings.Contains(got[1], "got nothing") {
		t.Errorf("mismatches = %v", got)
	}
}

// TestClient_VerifyApplied tests retrying until the daemon reports the write
func TestClient_VerifyApplied(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			_, _ = io.WriteString(w, `{"base":{"ticker":"OLD"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"base":{"ticker":"NEW"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	expected := &UpdateSet{}
	expected.Set(SectionBase, KeyTicker, StringValue("NEW"))

	opts := &VerificationOptions{MaxRetries: 2, InitialDelay: time.Millisecond, RetryDelay: time.Millisecond, MaxRetryDelay: time.Millisecond}
	result := c.VerifyApplied(context.Background(), expected, opts)
	if !result.Success {
		t.Fatalf("VerifyApplied() failed: %v", result.Error)
	}
	if result.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", result.Attempts)
	}
}
