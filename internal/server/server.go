package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/cfgfile"
	"github.com/muurk/zerostock/internal/discovery"
	"github.com/muurk/zerostock/internal/logging"
)

// Default endpoint paths and timeouts
const (
	DefaultConfigPath      = "/config"
	DefaultWSPath          = "/ws"
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	CertPath string // TLS is enabled when both CertPath and KeyPath are set
	KeyPath  string

	ConfigPath string // read/write endpoint, default /config
	WSPath     string // websocket endpoint, default /ws

	Advertise bool   // register the daemon over mDNS
	Instance  string // mDNS instance name
	Version   string // published in the TXT record

	ShutdownTimeout time.Duration
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.ConfigPath == "" {
		out.ConfigPath = DefaultConfigPath
	}
	if out.WSPath == "" {
		out.WSPath = DefaultWSPath
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &out
}

// RequestHandler processes requests received over any endpoint.
// *protocol.Handler implements it.
type RequestHandler interface {
	HandleWrite(ctx context.Context, data []byte) string
	HandleRead(ctx context.Context, offset int) []byte
}

// Server serves the read, write and notify endpoints
type Server struct {
	config     *Config
	handler    RequestHandler
	hub        *Hub
	tlsConfig  *tls.Config
	httpServer *http.Server
	watcher    *cfgfile.Watcher
	advert     *discovery.Advertisement

	mu          sync.Mutex
	activeConns map[string]net.Conn
}

// New creates a new Server instance
func New(config *Config, handler RequestHandler) (*Server, error) {
	config = config.withDefaults()

	var tlsConfig *tls.Config
	switch {
	case config.CertPath != "" && config.KeyPath != "":
		var err error
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	case config.CertPath != "" || config.KeyPath != "":
		return nil, errors.New("both a certificate and a key are required for TLS")
	}

	s := &Server{
		config:      config,
		handler:     handler,
		hub:         NewHub(),
		tlsConfig:   tlsConfig,
		activeConns: make(map[string]net.Conn),
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ConnState:         s.trackConn,
	}
	return s, nil
}

// WatchSettings logs edits of the settings file made by other processes
// while the server runs. Own writes must be reported to the watcher through
// Patcher.OnCommit.
func (s *Server) WatchSettings(w *cfgfile.Watcher) {
	s.watcher = w
}

// Hub returns the notify hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler with every endpoint registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+s.config.ConfigPath, s.handleRead)
	mux.HandleFunc("POST "+s.config.ConfigPath, s.handleWrite)
	mux.HandleFunc("GET "+s.config.WSPath, s.handleWebSocket)
	return mux
}

// Start listens on the configured address and blocks until SIGINT/SIGTERM
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			logging.Info("Shutdown signal received, stopping server...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.Run(ctx)
}

// Run listens on the configured address until ctx is done
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is done, then shuts down
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	if s.tlsConfig != nil {
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
		listener = tls.NewListener(listener, s.tlsConfig)
	}

	logging.Info("Server listening for connections",
		zap.String("addr", listener.Addr().String()),
		zap.String("config_path", s.config.ConfigPath),
		zap.String("ws_path", s.config.WSPath),
		zap.Bool("tls", s.tlsConfig != nil),
	)

	if s.config.Advertise {
		s.advertise(listener.Addr())
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	if s.watcher != nil {
		s.watchSettings(watchCtx)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) advertise(addr net.Addr) {
	port := s.config.Port
	if tcp, ok := addr.(*net.TCPAddr); ok {
		port = tcp.Port
	}
	txt := discovery.TxtRecords(s.config.ConfigPath, s.config.WSPath, s.config.Version, s.tlsConfig != nil)
	advert, err := discovery.Advertise(s.config.Instance, port, txt)
	if err != nil {
		// Discovery is a convenience; clients can still connect by address.
		logging.Warn("mDNS advertisement failed", zap.Error(err))
		return
	}
	s.advert = advert
}

func (s *Server) watchSettings(ctx context.Context) {
	changes, err := s.watcher.Watch(ctx)
	if err != nil {
		logging.Warn("Settings file watch disabled", zap.Error(err))
		return
	}

	go func() {
		for change := range changes {
			if !change.External {
				logging.Debug("Settings file rewritten by daemon", zap.String("path", change.Path))
				continue
			}
			fields := []zap.Field{
				zap.String("path", change.Path),
				zap.String("op", change.Op),
			}
			if change.Snapshot != nil {
				fields = append(fields, zap.Any("settings", cfgfile.ReadSnapshot(change.Snapshot)))
			}
			logging.Info("Settings file changed externally", fields...)
		}
	}()
}

// trackConn keeps activeConns in step with the HTTP server. Hijacked
// connections are handed to the hub and counted there.
func (s *Server) trackConn(conn net.Conn, state http.ConnState) {
	remoteAddr := conn.RemoteAddr().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch state {
	case http.StateNew:
		s.activeConns[remoteAddr] = conn
		logging.LogConnection(remoteAddr, "connection_accepted")
	case http.StateHijacked, http.StateClosed:
		if _, ok := s.activeConns[remoteAddr]; ok {
			delete(s.activeConns, remoteAddr)
			if state == http.StateClosed {
				logging.LogConnection(remoteAddr, "connection_closed")
			}
		}
	}
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")

	s.advert.Shutdown()

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
		_ = s.httpServer.Close()
	}

	// Websocket connections are hijacked and not closed by http.Server.
	s.hub.Close()

	logging.Info("All connections closed")
	logging.Sync()

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// GetActiveConnections returns the number of open HTTP and websocket connections
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	n := len(s.activeConns)
	s.mu.Unlock()
	return n + s.hub.Count()
}
