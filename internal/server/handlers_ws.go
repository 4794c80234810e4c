package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/boyl/lighteddjango/internal/metrics"
	"github.com/boyl/lighteddjango/internal/relay"
)

// handleSocket upgrades the request and hands the connection to the router.
// A bad or expired token closes the socket immediately, before any registry
// entry exists, so the client sees a close with no data frame.
func (s *Server) handleSocket(c echo.Context) error {
	channel := c.Param("channel")
	token := c.QueryParam("token")

	if !s.rateLimiter.Allow(c.RealIP()) {
		metrics.ConnectionsTotal.WithLabelValues("rate_limited").Inc()
		return c.String(http.StatusTooManyRequests, "connection rate exceeded")
	}
	if !s.limiter.Acquire() {
		metrics.ConnectionsTotal.WithLabelValues("at_capacity").Inc()
		return c.String(http.StatusServiceUnavailable, "server at capacity")
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the handshake error response.
		s.limiter.Release()
		metrics.ConnectionsTotal.WithLabelValues("upgrade_failed").Inc()
		return nil
	}

	conn, err := s.router.HandleConnect(c.Request().Context(), channel, token, ws)
	if err != nil {
		slog.Warn("rejecting connection", "channel", channel, "error", err)
		_ = ws.Close()
		s.limiter.Release()
		metrics.ConnectionsTotal.WithLabelValues("unauthorized").Inc()
		return nil
	}
	metrics.ConnectionsTotal.WithLabelValues("accepted").Inc()
	slog.Info("client subscribed", "channel", channel, "connection_id", conn.ID)

	go s.readLoop(conn, ws)
	return nil
}

// readLoop is the connection's reader goroutine: every inbound frame is
// republished on the connection's channel, and any read error tears the
// connection down.
func (s *Server) readLoop(conn *relay.Conn, ws *websocket.Conn) {
	defer func() {
		s.router.HandleDisconnect(context.Background(), conn)
		s.limiter.Release()
		slog.Info("client disconnected", "channel", conn.Channel, "connection_id", conn.ID)
	}()

	for {
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		s.router.HandleMessage(context.Background(), conn, payload)
	}
}
