package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tvoe/mediaserver/internal/config"
)

// defaultShutdownTimeout bounds graceful shutdown when the config leaves
// APIConfig.ShutdownTimeout unset.
const defaultShutdownTimeout = 15 * time.Second

// Server wraps the HTTP listener with graceful lifecycle handling. Long-lived
// streaming responses keep WriteTimeout at zero; shutdown is bounded instead.
type Server struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewServer builds the HTTP server from the API configuration.
func NewServer(cfg config.APIConfig, handler http.Handler, logger *zap.Logger) *Server {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		shutdownTimeout: timeout,
		logger:          logger,
	}
}

// Start runs the listener until Stop is called or the listener fails.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop drains in-flight requests, waiting at most the configured shutdown
// timeout before giving up on stragglers.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server", zap.Duration("timeout", s.shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	return nil
}
