package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/boyl/lighteddjango/internal/relay"
)

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":       "unhealthy",
			"failed_check": "redis",
			"error":        err.Error(),
		})
	}

	resp := map[string]any{
		"status":      "ready",
		"connections": s.registry.Count(relay.AllChannels),
	}
	if s.instances != nil {
		if active, err := s.instances.ActiveInstances(ctx); err == nil {
			resp["instances"] = len(active)
		}
	}
	return c.JSON(http.StatusOK, resp)
}
