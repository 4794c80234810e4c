package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Change notifications from the system-of-record (signed, no auth cookie)
	s.echo.POST("/:model/:id", s.handleWebhook)
	s.echo.PUT("/:model/:id", s.handleWebhook)
	s.echo.DELETE("/:model/:id", s.handleWebhook)

	// Websocket subscribe, token-authorized per channel
	s.echo.GET("/:channel", s.handleSocket)
}
