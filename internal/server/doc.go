// Package server exposes the settings daemon over HTTP and WebSocket.
//
// # Endpoints
//
//	GET  /config[?offset=N]   read: JSON snapshot, optionally from byte offset N
//	POST /config              write: request body in, status string out
//	GET  /ws                  websocket: each frame is a write request
//
// A status is always "ok" or "error: <reason>". Every status, whichever
// endpoint produced it, is pushed as a text frame to all websocket
// subscribers, so a client that wrote over HTTP can still be notified on
// its open socket.
//
// # TLS
//
// When both a certificate and a key are configured, the listener is wrapped
// with TLS (1.2 minimum) and the mDNS TXT record carries tls=1.
//
// # Usage Example
//
//	srv, err := server.New(&server.Config{Port: 8080, Advertise: true}, handler)
//	if err != nil {
//	    return err
//	}
//	srv.WatchSettings(watcher)
//
//	// Start blocks until SIGINT or SIGTERM
//	return srv.Start()
//
// # Graceful Shutdown
//
// On shutdown the mDNS record is withdrawn, the HTTP server stops accepting
// connections and waits for in-flight requests, and every websocket
// subscriber receives a close frame.
package server
