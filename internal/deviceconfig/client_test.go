package deviceconfig

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

const testSnapshot = `{"base":{"refresh_interval_minutes":15,"ticker":"ABC"},"wifi":{"status":"Connected"}}`

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL+"/config", "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws")
	c.SetRetry(2, time.Millisecond)
	c.MaxRetryDelay = 5 * time.Millisecond
	return c
}

// TestClient_GetSnapshot tests decoding and caching of the read endpoint
func TestClient_GetSnapshot(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, testSnapshot)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	snap, err := c.GetSnapshot(context.Background())
	if err != nil {
		t.Fatalf("GetSnapshot() error = %v", err)
	}
	if snap.Base == nil || snap.Base.Ticker == nil || *snap.Base.Ticker != "ABC" {
		t.Fatalf("unexpected base: %+v", snap.Base)
	}
	if n, ok := snap.Base.RefreshIntervalMinutes.(json.Number); !ok || n.String() != "15" {
		t.Errorf("refresh = %#v, want json.Number 15", snap.Base.RefreshIntervalMinutes)
	}
	if got := FormatValue(snap.Base.RefreshIntervalMinutes, " min"); got != "15 min" {
		t.Errorf("FormatValue() = %q", got)
	}

	if _, err := c.GetSnapshot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("expected cached second read, got %d requests", hits.Load())
	}

	if _, err := c.RefreshSnapshot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 2 {
		t.Errorf("RefreshSnapshot should bypass the cache, got %d requests", hits.Load())
	}
}

// TestClient_GetSnapshot_Retry tests retry on server errors only
func TestClient_GetSnapshot_Retry(t *testing.T) {
	t.Run("recovers after 5xx", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, testSnapshot)
		}))
		defer srv.Close()

		if _, err := newTestClient(srv).GetSnapshot(context.Background()); err != nil {
			t.Fatalf("GetSnapshot() error = %v", err)
		}
		if hits.Load() != 3 {
			t.Errorf("requests = %d, want 3", hits.Load())
		}
	})

	t.Run("gives up on 4xx", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := newTestClient(srv).GetSnapshot(context.Background())
		if err == nil || IsRetryable(err) {
			t.Fatalf("expected non-retryable error, got %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("requests = %d, want 1", hits.Load())
		}
	})

	t.Run("bad body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "not json")
		}))
		defer srv.Close()

		_, err := newTestClient(srv).GetSnapshot(context.Background())
		if !hasType(err, ErrTypeParse) {
			t.Fatalf("expected parse error, got %v", err)
		}
	})
}

// TestClient_Apply_WebSocket tests a write over the websocket endpoint
func TestClient_Apply_WebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- string(data)
		_ = conn.WriteMessage(websocket.PingMessage, nil)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("ok"))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c := newTestClient(srv)
	status, err := c.Apply(context.Background(), map[string]any{"base": map[string]any{"ticker": "XYZ"}})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if status != "ok" {
		t.Errorf("status = %q, want ok", status)
	}
	if got := <-received; got != `{"base":{"ticker":"XYZ"}}` {
		t.Errorf("request = %s", got)
	}
}

// TestClient_Apply_HTTPFallback tests that a write is posted when the
// websocket handshake fails
func TestClient_Apply_HTTPFallback(t *testing.T) {
	var posts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/config" && r.Method == http.MethodPost:
			posts.Add(1)
			body, _ := io.ReadAll(r.Body)
			if !strings.Contains(string(body), "candle") {
				t.Errorf("unexpected body %s", body)
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, "error: restart failed (boom)")
		case r.URL.Path == "/config":
			_, _ = io.WriteString(w, testSnapshot)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	if _, err := c.GetSnapshot(context.Background()); err != nil {
		t.Fatal(err)
	}
	status, err := c.Apply(context.Background(), map[string]any{"epd2in13v3": map[string]any{"mode": "candle"}})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if status != "error: restart failed (boom)" {
		t.Errorf("status = %q", status)
	}
	if posts.Load() != 1 {
		t.Errorf("posts = %d, want 1", posts.Load())
	}
	if c.GetCachedSnapshot() != nil {
		t.Error("Apply should invalidate the cached snapshot")
	}
}

// TestClient_SendHTTP_Status tests rejection of non-200 write answers
func TestClient_SendHTTP_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).SendHTTP(context.Background(), []byte(`{}`))
	var cfgErr *ConfigError
	if !hasType(err, ErrTypeHTTP) {
		t.Fatalf("expected HTTP error, got %v", err)
	}
	if !errors.As(err, &cfgErr) || cfgErr.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("status code = %+v", cfgErr)
	}
}
