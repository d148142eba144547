// Package admin serves the switch's operational HTTP surface. Cardholder
// traffic never passes through here; this server only exposes health,
// statistics, routing rule management and audit queries to operators.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardswitch/card-switch/internal/admin/handler"
	"github.com/cardswitch/card-switch/internal/admin/middleware"
	"github.com/cardswitch/card-switch/internal/config"
)

// Server handles admin HTTP requests and manages the server lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures the admin HTTP server
func NewServer(
	log *slog.Logger,
	cfg *config.Config,
	auditor middleware.SecurityAuditor,
	statusHandler *handler.StatusHandler,
	routingHandler *handler.RoutingHandler,
	auditHandler *handler.AuditHandler,
) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()
	setupRouter(log, httpRouter, auditor, statusHandler, routingHandler, auditHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Admin.ReadTimeout,
		WriteTimeout: cfg.Admin.WriteTimeout,
		IdleTimeout:  cfg.Admin.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start admin HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping admin HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop admin HTTP server: %w", err)
	}

	return nil
}
