package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/Sam-at-git/aipms-sub001/pkg/debugstore"
)

// listSessionsHandler handles GET /api/v1/sessions.
func (s *Server) listSessionsHandler(c *echo.Context) error {
	opts := debugstore.ListSessionsOptions{
		Status: c.QueryParam("status"),
	}
	if v := c.QueryParam("user_id"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			opts.UserID = &id
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			opts.Offset = n
		}
	}

	sessions, err := s.store.ListSessions(c.Request().Context(), opts)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// getSessionHandler handles GET /api/v1/sessions/:id.
func (s *Server) getSessionHandler(c *echo.Context) error {
	sess, err := s.store.GetSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

// getAttemptsHandler handles GET /api/v1/sessions/:id/attempts.
func (s *Server) getAttemptsHandler(c *echo.Context) error {
	attempts, err := s.store.GetAttempts(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, attempts)
}

// exportSessionHandler handles GET /api/v1/sessions/:id/export.
func (s *Server) exportSessionHandler(c *echo.Context) error {
	exported, err := s.store.ExportSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, exported)
}

// statisticsHandler handles GET /api/v1/statistics.
func (s *Server) statisticsHandler(c *echo.Context) error {
	stats, err := s.store.GetStatistics(c.Request().Context())
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, stats)
}
