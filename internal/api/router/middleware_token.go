package router

import (
	"net/http"
	"strings"
)

const channelTokenHeader = "X-Channel-Token"
const channelTokenQuery = "channel_token"

// requireChannelToken gates the webchat surface behind a shared token so a
// deployment can keep its widget private. When expected is empty, the
// middleware is a no-op. The query fallback exists for websocket clients that
// cannot set headers.
func requireChannelToken(expected string) func(http.Handler) http.Handler {
	expected = strings.TrimSpace(expected)
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(channelTokenHeader))
			if token == "" {
				token = strings.TrimSpace(r.URL.Query().Get(channelTokenQuery))
			}
			if token == "" || token != expected {
				http.Error(w, "invalid channel token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
