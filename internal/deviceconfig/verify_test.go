package deviceconfig

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func fastVerification() *VerificationOptions {
	return &VerificationOptions{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		RetryDelay:   time.Millisecond,
	}
}

func TestDefaultVerificationOptions(t *testing.T) {
	opts := DefaultVerificationOptions()

	if opts.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries=3, got %d", opts.MaxRetries)
	}
	if opts.InitialDelay != 500*time.Millisecond {
		t.Errorf("Expected InitialDelay=500ms, got %v", opts.InitialDelay)
	}
	if !opts.UseExponentialBackoff {
		t.Error("Expected UseExponentialBackoff=true")
	}
	if opts.MaxRetryDelay != 5*time.Second {
		t.Errorf("Expected MaxRetryDelay=5s, got %v", opts.MaxRetryDelay)
	}
}

func TestCompareSnapshot_Verify(t *testing.T) {
	ticker := "ABC"
	mode := "line"
	snap := &Snapshot{
		Base: &BaseSettings{
			RefreshIntervalMinutes: json.Number("10"),
			DataRangeDays:          7.0,
			Ticker:                 &ticker,
		},
		Display: &DisplaySettings{Mode: &mode},
	}

	tests := []struct {
		name    string
		updates func(u *UpdateSet)
		want    int
	}{
		{"all match", func(u *UpdateSet) {
			u.Set(SectionBase, KeyRefreshInterval, IntValue(10))
			u.Set(SectionBase, KeyDataRange, FloatValue(7))
			u.Set(SectionBase, KeyTicker, StringValue("ABC"))
			u.Set(SectionDisplay, KeyMode, StringValue("line"))
		}, 0},
		{"value differs", func(u *UpdateSet) {
			u.Set(SectionBase, KeyTicker, StringValue("XYZ"))
		}, 1},
		{"missing key", func(u *UpdateSet) {
			u.Set(SectionBase, KeyDataAPIBaseURL, StringValue("https://example.com"))
			u.Set(SectionBase, KeyRefreshInterval, IntValue(11))
		}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &UpdateSet{}
			tt.updates(u)
			got := CompareSnapshot(u, snap)
			if len(got) != tt.want {
				t.Errorf("CompareSnapshot() = %v, want %d mismatches", got, tt.want)
			}
		})
	}

	u := &UpdateSet{}
	u.Set(SectionBase, KeyTicker, StringValue("ABC"))
	if got := CompareSnapshot(u, nil); len(got) != 1 || !strings.Contains(got[0], "got nothing") {
		t.Errorf("CompareSnapshot(nil) = %v", got)
	}
}

func TestVerifyApplied_EventuallyMatches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The first read still reports the old ticker
		if hits.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"base":{"ticker":"OLD"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"base":{"ticker":"NEW"}}`))
	}))
	defer srv.Close()

	u := &UpdateSet{}
	u.Set(SectionBase, KeyTicker, StringValue("NEW"))

	result := newTestClient(srv).VerifyApplied(context.Background(), u, fastVerification())
	if !result.Success {
		t.Fatalf("VerifyApplied() failed: %v", result.Error)
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
	if result.Actual == nil || *result.Actual.Base.Ticker != "NEW" {
		t.Errorf("Actual = %+v", result.Actual)
	}
}

func TestVerifyApplied_Mismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"base":{"refresh_interval_minutes":5}}`))
	}))
	defer srv.Close()

	u := &UpdateSet{}
	u.Set(SectionBase, KeyRefreshInterval, IntValue(10))

	result := newTestClient(srv).VerifyApplied(context.Background(), u, fastVerification())
	if result.Success {
		t.Fatal("VerifyApplied() should fail")
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
	if result.Error == nil || !strings.Contains(result.Error.Error(), "refresh_interval_minutes") {
		t.Errorf("Error = %v", result.Error)
	}
}

func TestVerifyApplied_Cancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := fastVerification()
	opts.InitialDelay = time.Second
	result := newTestClient(srv).VerifyApplied(ctx, &UpdateSet{}, opts)
	if result.Success || result.Error != context.Canceled {
		t.Errorf("result = %+v, want context.Canceled", result)
	}
}
