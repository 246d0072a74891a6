package main

import (
	"strings"
	"testing"
)

func TestReadRequest(t *testing.T) {
	data, err := readRequest(strings.NewReader("ignored"), `{"restart":true}`)
	if err != nil || string(data) != `{"restart":true}` {
		t.Errorf("argument: %q, %v", data, err)
	}

	data, err = readRequest(strings.NewReader(`{"base":{}}`), "-")
	if err != nil || string(data) != `{"base":{}}` {
		t.Errorf("stdin: %q, %v", data, err)
	}

	_, err = readRequest(strings.NewReader(strings.Repeat("x", maxApplyInput+1)), "-")
	if err == nil {
		t.Error("expected an error for oversized input")
	}
}

func TestRedactRequest(t *testing.T) {
	got := redactRequest([]byte(`{"wifi":{"ssid":"home","psk":"hunter22"}}`))
	if strings.Contains(got, "hunter22") {
		t.Errorf("PSK leaked: %s", got)
	}
	if !strings.Contains(got, `"ssid":"home"`) {
		t.Errorf("ssid missing: %s", got)
	}
	if got := redactRequest([]byte("not json")); got != "" {
		t.Errorf("invalid input = %q, want empty", got)
	}
}
