package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/muurk/zerostock/internal/logging"
)

// handleRead serves the settings snapshot. The optional offset query
// parameter returns the suffix from that byte offset.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		offset = n
	}

	data := s.handler.HandleRead(r.Context(), offset)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write read response",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
	}
	logging.LogRequest(r.RemoteAddr, "read", fmt.Sprintf("%d bytes from offset %d", len(data), offset))
}

// handleWrite runs one write request and replies with its status. The
// status is also pushed to every websocket subscriber.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read request", http.StatusBadRequest)
		return
	}

	status := s.handler.HandleWrite(r.Context(), body)
	logging.LogRequest(r.RemoteAddr, "write", status)
	s.hub.Broadcast(status)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, status)
}
