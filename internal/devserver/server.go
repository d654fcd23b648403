// Package devserver serves the build output over HTTP during authoring and
// pushes reload notifications to open browser tabs over a minimal WebSocket
// subset. The frame layer is deliberately small: single text frames under
// 126 bytes cover the whole session vocabulary.
package devserver

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	_ "embed"

	"github.com/google/uuid"

	"github.com/conneroisu/quarry/internal/config"
	"github.com/conneroisu/quarry/internal/logging"
)

// ScriptPath is the reserved URL of the injected helper script.
const ScriptPath = "/_quarry/reload.js"

const wsMagicGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

//go:embed reload.js
var reloadScript string

// Server is the live-reload dev server. Each accepted WebSocket connection
// runs on its own goroutine; a protocol violation terminates only that
// connection.
type Server struct {
	cfg  *config.Config
	log  *logging.Logger
	http *http.Server

	ln   net.Listener
	port int

	mu    sync.RWMutex
	conns map[uuid.UUID]*connection
}

// New creates a Server over the configured build directory.
func New(cfg *config.Config, log *logging.Logger) *Server {
	s := &Server{
		cfg:   cfg,
		log:   log.WithComponent("devserver"),
		conns: make(map[uuid.UUID]*connection),
	}
	s.http = &http.Server{
		Handler:           http.HandlerFunc(s.handle),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start binds the listener and begins serving. Port 0 picks a free port;
// Port reports the bound one either way.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.ServePort))
	if err != nil {
		return fmt.Errorf("binding dev server: %w", err)
	}
	s.ln = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error(err, "dev server stopped")
		}
	}()
	s.log.Info("dev server listening", "port", s.port)
	return nil
}

// Port returns the bound listener port.
func (s *Server) Port() int { return s.port }

// Shutdown closes every live-reload connection and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for id, c := range s.conns {
		c.conn.Close()
		delete(s.conns, id)
	}
	s.mu.Unlock()
	return s.http.Shutdown(ctx)
}

// NotifyReload pushes refresh to every connected tab. Connections whose
// write fails are dropped; their client will reconnect on its own.
func (s *Server) NotifyReload() {
	s.mu.RLock()
	conns := make([]*connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		if err := c.send("refresh"); err != nil {
			s.log.Debug("dropping unreachable connection", "id", c.id)
			s.dropConnection(c)
		}
	}
}

// ConnectionCount reports the number of live sessions.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Sec-WebSocket-Key") != "" {
		s.upgrade(w, r)
		return
	}
	if r.URL.Path == ScriptPath {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, strings.ReplaceAll(reloadScript, "$PORT", fmt.Sprint(s.port)))
		return
	}
	http.FileServer(http.Dir(s.cfg.BuildDir)).ServeHTTP(w, r)
}

// acceptKey computes the RFC 6455 handshake value for a client key.
func acceptKey(key string) string {
	sum := sha1.Sum([]byte(key + wsMagicGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "upgrade unsupported", http.StatusInternalServerError)
		return
	}
	conn, rw, err := hj.Hijack()
	if err != nil {
		s.log.Warn(err, "hijacking connection")
		return
	}

	response := "HTTP/1.1 101 Switching Protocols\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Accept: " + acceptKey(r.Header.Get("Sec-WebSocket-Key")) + "\r\n\r\n"
	if _, err := rw.WriteString(response); err != nil {
		conn.Close()
		return
	}
	if err := rw.Flush(); err != nil {
		conn.Close()
		return
	}

	c := newConnection(conn, rw.Reader)
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	s.log.Debug("live-reload connection opened", "id", c.id)

	go s.readLoop(c)
}

func (s *Server) dropConnection(c *connection) {
	c.conn.Close()
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
}
