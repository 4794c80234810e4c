package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// NewCheckOrigin builds the websocket origin check. Empty origins (non-browser
// clients) are accepted; browser origins must be on the allow-list. Debug mode
// accepts everything.
func NewCheckOrigin(allowedHosts []string, debug bool) func(r *http.Request) bool {
	hosts := make(map[string]bool, len(allowedHosts))
	for _, host := range allowedHosts {
		hosts[strings.ToLower(host)] = true
	}

	return func(r *http.Request) bool {
		if debug {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		parsed, err := url.Parse(strings.ToLower(origin))
		if err != nil {
			return false
		}
		if hosts[parsed.Host] {
			return true
		}

		slog.Warn("websocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}
