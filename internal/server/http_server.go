// Package server constructs and runs the roomchat HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration, log *slog.Logger) error {
	log.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
		return err
	}

	log.Info("HTTP server shutdown completed")
	return nil
}

// Run serves until ctx is cancelled, then stops accepting requests and closes
// every chat connection. Upgraded connections are hijacked and invisible to
// http.Server.Shutdown, so the hub is shut down separately.
func (s *Server) Run(ctx context.Context) error {
	httpServer := CreateServer(s.cfg.Port, s.Routes())

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", "addr", httpServer.Addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	return errors.Join(
		ShutdownServer(httpServer, s.cfg.ShutdownTimeout, s.log),
		s.hub.Shutdown(s.cfg.ShutdownTimeout),
	)
}
