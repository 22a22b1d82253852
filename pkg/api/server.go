// Package api exposes the runtime's debug/replay surface over HTTP:
// session listing and detail, statistics, and replay submission, for the
// dashboard a front-desk supervisor would use to inspect and re-run past
// executions (spec.md §4.F).
package api

import (
	"context"
	"net"
	"net/http"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/Sam-at-git/aipms-sub001/pkg/debugstore"
)

// Server is the HTTP API server fronting the debug store.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	store      *debugstore.Store
	dispatcher debugstore.Dispatcher
}

// NewServer builds a Server bound to store and dispatcher (typically an
// *actions.Registry, optionally wrapped via debugstore.WrapReflexion).
func NewServer(store *debugstore.Store, dispatcher debugstore.Dispatcher) *Server {
	e := echo.New()
	s := &Server{echo: e, store: store, dispatcher: dispatcher}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(1024 * 1024))

	s.echo.GET("/health", s.healthHandler)

	v1 := s.echo.Group("/api/v1")
	v1.GET("/sessions", s.listSessionsHandler)
	v1.GET("/sessions/:id", s.getSessionHandler)
	v1.GET("/sessions/:id/attempts", s.getAttemptsHandler)
	v1.GET("/sessions/:id/export", s.exportSessionHandler)
	v1.POST("/sessions/:id/replay", s.replaySessionHandler)
	v1.POST("/sessions/:id/compare", s.compareSessionHandler)
	v1.GET("/statistics", s.statisticsHandler)
}

// Start runs the server, blocking, on addr.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener runs the server on a pre-created listener — used by
// tests that bind an OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}
