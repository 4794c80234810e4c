package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/boyl/lighteddjango/internal/metrics"
	"github.com/boyl/lighteddjango/internal/relay"
	"github.com/boyl/lighteddjango/internal/signing"
)

// handleWebhook accepts a signed change notification from the system-of-record
// and rebroadcasts it to every connected client. Verification failures answer
// 400 with no broadcast side effect.
func (s *Server) handleWebhook(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		metrics.WebhookRequests.WithLabelValues("rejected").Inc()
		return c.String(http.StatusBadRequest, "unreadable body")
	}

	signature := req.Header.Get("X-Signature")
	if err := s.verifier.Verify(signature, req.Method, requestURL(req), signing.BodyHash(body)); err != nil {
		metrics.WebhookRequests.WithLabelValues("rejected").Inc()
		slog.Warn("webhook rejected",
			"method", req.Method,
			"path", req.URL.Path,
			"error", err)
		return c.String(http.StatusBadRequest, "invalid signature")
	}

	err = s.router.HandleWebhook(req.Context(), req.Method, c.Param("model"), c.Param("id"), body)
	if errors.Is(err, relay.ErrBusUnavailable) {
		metrics.WebhookRequests.WithLabelValues("bus_error").Inc()
		slog.Error("webhook broadcast failed", "error", err)
		return c.String(http.StatusBadGateway, "broadcast failed")
	}
	if err != nil {
		metrics.WebhookRequests.WithLabelValues("rejected").Inc()
		return c.String(http.StatusBadRequest, "invalid notification")
	}

	return c.String(http.StatusOK, "OK")
}

// requestURL reconstructs the canonical URL the producer signed:
// scheme://host/path, without query string.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return scheme + "://" + r.Host + r.URL.Path
}
