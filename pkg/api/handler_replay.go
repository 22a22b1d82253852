package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/Sam-at-git/aipms-sub001/pkg/debugstore"
)

// replayRequest is the POST /api/v1/sessions/:id/replay body.
type replayRequest struct {
	LLMModel             string                    `json:"llm_model"`
	Temperature          *float64                  `json:"temperature"`
	MaxTokens            *int                      `json:"max_tokens"`
	BaseURL              string                    `json:"base_url"`
	SchemaOverride       string                    `json:"schema_override"`
	ToolsOverride        string                    `json:"tools_override"`
	ActionParamsOverride map[string]map[string]any `json:"action_params_override"`
	DryRun               bool                      `json:"dry_run"`
	SaveReplay           bool                      `json:"save_replay"`
}

// replaySessionHandler handles POST /api/v1/sessions/:id/replay.
func (s *Server) replaySessionHandler(c *echo.Context) error {
	if s.dispatcher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "replay dispatcher not configured")
	}

	var req replayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid replay request body")
	}

	overrides := debugstore.ReplayOverrides{
		LLMModel:             req.LLMModel,
		Temperature:          req.Temperature,
		MaxTokens:            req.MaxTokens,
		BaseURL:              req.BaseURL,
		SchemaOverride:       req.SchemaOverride,
		ToolsOverride:        req.ToolsOverride,
		ActionParamsOverride: req.ActionParamsOverride,
		DryRun:               req.DryRun,
		SaveReplay:           req.SaveReplay,
	}

	result, err := s.store.Replay(c.Request().Context(), c.Param("id"), overrides, s.dispatcher)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// compareRequest is the POST /api/v1/sessions/:id/compare body: a replay
// result previously returned by replaySessionHandler, submitted back for
// diffing against the original.
type compareRequest struct {
	Replay debugstore.ReplayResult `json:"replay"`
}

// compareSessionHandler handles POST /api/v1/sessions/:id/compare.
func (s *Server) compareSessionHandler(c *echo.Context) error {
	var req compareRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid compare request body")
	}

	diff, err := s.store.CompareSessions(c.Request().Context(), c.Param("id"), &req.Replay)
	if err != nil {
		return mapStoreError(err)
	}
	return c.JSON(http.StatusOK, diff)
}
