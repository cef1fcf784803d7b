package mw

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vango-go/vai-companion/pkg/core"
)

// MonitorAuth admits requests carrying token as a bearer credential or, for
// browser WebSocket clients that cannot set headers, as the token query
// parameter. An empty token rejects everything.
func MonitorAuth(token string, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, _ := RequestIDFrom(r.Context())

		got, ok := parseBearer(r)
		if !ok {
			got = r.URL.Query().Get("token")
		}
		if token == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			if logger != nil {
				logger.Warn("monitor access rejected", "request_id", reqID, "remote", r.RemoteAddr)
			}
			writeJSONError(w, http.StatusUnauthorized, &core.Error{
				Type:      core.ErrInvalidRequest,
				Message:   "missing or invalid monitor token",
				Param:     "Authorization",
				Code:      "invalid_monitor_token",
				RequestID: reqID,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseBearer(r *http.Request) (string, bool) {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
	return token, token != ""
}
