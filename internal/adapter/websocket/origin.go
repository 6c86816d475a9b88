package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// NewCheckOrigin returns the upgrader's CheckOrigin function. It accepts
// requests without an Origin header (non-browser clients), the app's own
// origin, and any of the extra allowed origins. "*" in allowed accepts every
// origin. In development localhost origins are accepted as well.
func NewCheckOrigin(appURL string, allowed []string, isDevelopment bool) func(r *http.Request) bool {
	appOrigin := extractOrigin(appURL)
	anyOrigin := slices.Contains(allowed, "*")

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		switch {
		case origin == "", anyOrigin:
			return true
		case appOrigin != "" && strings.EqualFold(origin, appOrigin):
			return true
		case slices.Contains(allowed, origin):
			return true
		case isDevelopment && isLocalhostOrigin(origin):
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
