package localserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Server represents the local management server.
type Server struct {
	path    string
	http    *http.Server
	logger  *slog.Logger
	running atomic.Bool
}

// New creates a local server serving handler on socketPath.
func New(socketPath string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		path:   socketPath,
		logger: logger.With("component", "localserver"),
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.path
}

// Listen creates the socket. A stale socket file left by a crashed process
// is removed first; any other file at the path is an error.
func (s *Server) Listen() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return nil, fmt.Errorf("localserver: create socket dir: %w", err)
	}
	if fi, err := os.Lstat(s.path); err == nil {
		if fi.Mode()&os.ModeSocket == 0 {
			return nil, fmt.Errorf("localserver: %s exists and is not a socket", s.path)
		}
		if conn, err := net.Dial("unix", s.path); err == nil {
			conn.Close()
			return nil, fmt.Errorf("localserver: %s is in use", s.path)
		}
		if err := os.Remove(s.path); err != nil {
			return nil, fmt.Errorf("localserver: remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", s.path)
	if err != nil {
		return nil, fmt.Errorf("localserver: listen: %w", err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		ln.Close()
		return nil, fmt.Errorf("localserver: chmod socket: %w", err)
	}
	return ln, nil
}

// ListenAndServe creates the socket and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown. It returns nil after a
// graceful shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.running.Store(true)
	s.logger.Info("local socket listening", "path", s.path)

	err := s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) || !s.running.Load() {
		return nil
	}
	return err
}

// OnShutdown registers f to run when Shutdown begins.
func (s *Server) OnShutdown(f func()) {
	s.http.RegisterOnShutdown(f)
}

// Shutdown stops accepting connections, drains active ones within ctx and
// removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	err := s.http.Shutdown(ctx)
	if rmErr := os.Remove(s.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	return err
}
