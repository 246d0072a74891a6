package deviceconfig

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultWriteTimeout bounds a write request. Provisioning a network and
	// restarting the display service can take a while.
	DefaultWriteTimeout = 90 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed reads
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultCacheDuration is the default cache validity duration
	DefaultCacheDuration = 30 * time.Second
)

// Client talks to a config daemon. Reads go over HTTP and are retried;
// writes go over the websocket endpoint and are never retried, since a
// repeated write may provision the network twice.
type Client struct {
	// ConfigURL is the read/write endpoint (e.g. "http://10.0.0.7:8080/config")
	ConfigURL string

	// WebSocketURL is the write/notify endpoint (e.g. "ws://10.0.0.7:8080/ws").
	// When empty, writes are posted to ConfigURL.
	WebSocketURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Dialer opens websocket connections
	Dialer *websocket.Dialer

	// WriteTimeout bounds a single write when ctx carries no deadline
	WriteTimeout time.Duration

	// MaxRetries is the maximum number of retry attempts for failed reads
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	// CacheDuration is how long to cache a snapshot (0 = no cache)
	CacheDuration time.Duration

	cachedSnapshot *Snapshot
	cacheTime      time.Time
	cacheMutex     sync.RWMutex
}

// NewClient creates a client for the given endpoints
func NewClient(configURL, webSocketURL string) *Client {
	return &Client{
		ConfigURL:             configURL,
		WebSocketURL:          webSocketURL,
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		Dialer:                &websocket.Dialer{HandshakeTimeout: DefaultTimeout, Proxy: http.ProxyFromEnvironment},
		WriteTimeout:          DefaultWriteTimeout,
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		CacheDuration:         DefaultCacheDuration,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// SetInsecure disables certificate verification for daemons serving a
// self-signed certificate.
func (c *Client) SetInsecure(insecure bool) {
	tlsConfig := &tls.Config{InsecureSkipVerify: insecure} //nolint:gosec // opt-in for self-signed daemons
	c.HTTPClient.Transport = &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: tlsConfig,
	}
	c.Dialer.TLSClientConfig = tlsConfig
}

// GetSnapshot retrieves the daemon's current settings and wireless state.
// A fresh cached snapshot is returned without a request.
func (c *Client) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	if cached := c.GetCachedSnapshot(); cached != nil {
		return cached, nil
	}

	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, NewNetworkError("snapshot request cancelled", ctx.Err())
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		snap, err := c.getSnapshotAttempt(ctx)
		if err == nil {
			if c.CacheDuration > 0 {
				c.cacheMutex.Lock()
				c.cachedSnapshot = snap
				c.cacheTime = time.Now()
				c.cacheMutex.Unlock()
			}
			return snap, nil
		}

		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) getSnapshotAttempt(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ConfigURL, nil)
	if err != nil {
		return nil, NewNetworkError("failed to create GET request", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("GET request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}

	return DecodeSnapshot(body)
}

// DecodeSnapshot parses a read response. Numbers are kept as json.Number so
// that integers render without a fractional part.
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var snap Snapshot
	if err := dec.Decode(&snap); err != nil {
		return nil, NewParseError("failed to parse snapshot", err)
	}
	return &snap, nil
}

// Apply encodes payload and sends it with Send.
func (c *Client) Apply(ctx context.Context, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	return c.Send(ctx, body)
}

// Send delivers raw request bytes and returns the daemon's status string
// ("ok" or "error: <reason>"). The request goes over the websocket endpoint;
// when that endpoint cannot be reached it is posted over HTTP instead. A
// transport error is returned only when the status could not be obtained.
func (c *Client) Send(ctx context.Context, body []byte) (string, error) {
	if _, ok := ctx.Deadline(); !ok && c.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.WriteTimeout)
		defer cancel()
	}

	var (
		status string
		err    error
	)
	if c.WebSocketURL != "" {
		status, err = c.SendWebSocket(ctx, body)
		var dialErr *dialError
		if errors.As(err, &dialErr) {
			status, err = c.SendHTTP(ctx, body)
		}
	} else {
		status, err = c.SendHTTP(ctx, body)
	}
	if err != nil {
		return "", err
	}

	c.InvalidateCache()
	return status, nil
}

// dialError marks a websocket failure that happened before the request was
// sent, so falling back to HTTP cannot apply it twice.
type dialError struct {
	err error
}

func (e *dialError) Error() string { return e.err.Error() }
func (e *dialError) Unwrap() error { return e.err }

// SendWebSocket writes body as one text frame and returns the first status
// frame received.
func (c *Client) SendWebSocket(ctx context.Context, body []byte) (string, error) {
	conn, resp, err := c.Dialer.DialContext(ctx, c.WebSocketURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return "", NewNetworkError("websocket dial failed", &dialError{err: err})
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
		return "", NewNetworkError("failed to send request", err)
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return "", NewNetworkError("no status received", ctx.Err())
			}
			return "", NewNetworkError("no status received", err)
		}
		if msgType == websocket.TextMessage {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return string(data), nil
		}
	}
}

// SendHTTP posts body to the config endpoint and returns the status text.
func (c *Client) SendHTTP(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ConfigURL, bytes.NewReader(body))
	if err != nil {
		return "", NewNetworkError("failed to create POST request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// The write can outlast the read timeout.
	httpClient := *c.HTTPClient
	httpClient.Timeout = 0

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", NewNetworkError("POST request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewNetworkError("failed to read response body", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", NewHTTPError(resp.StatusCode,
			fmt.Sprintf("write failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(data)))
	}
	return string(data), nil
}

// InvalidateCache clears the cached snapshot, forcing the next GetSnapshot to fetch fresh data
func (c *Client) InvalidateCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cachedSnapshot = nil
	c.cacheTime = time.Time{}
}

// GetCachedSnapshot returns the cached snapshot without making a request.
// Returns nil if no valid cache exists.
func (c *Client) GetCachedSnapshot() *Snapshot {
	if c.CacheDuration <= 0 {
		return nil
	}
	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()

	if c.cachedSnapshot != nil && time.Since(c.cacheTime) < c.CacheDuration {
		cached := *c.cachedSnapshot
		return &cached
	}
	return nil
}

// RefreshSnapshot fetches a fresh snapshot, bypassing and updating the cache
func (c *Client) RefreshSnapshot(ctx context.Context) (*Snapshot, error) {
	c.InvalidateCache()
	return c.GetSnapshot(ctx)
}
