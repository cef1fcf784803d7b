package mw

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vango-go/vai-companion/pkg/core"
)

func TestMonitorAuth(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		target string
		header string
		want   int
	}{
		{"bearer", "feed-secret", "/ws/monitor", "Bearer feed-secret", http.StatusNoContent},
		{"query", "feed-secret", "/ws/monitor?token=feed-secret", "", http.StatusNoContent},
		{"missing", "feed-secret", "/ws/monitor", "", http.StatusUnauthorized},
		{"wrong bearer", "feed-secret", "/ws/monitor?token=feed-secret", "Bearer nope", http.StatusUnauthorized},
		{"wrong query", "feed-secret", "/ws/monitor?token=nope", "", http.StatusUnauthorized},
		{"basic scheme", "feed-secret", "/ws/monitor", "Basic feed-secret", http.StatusUnauthorized},
		{"unset token", "", "/ws/monitor?token=", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := RequestID(MonitorAuth(tt.token, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})))
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("status=%d body=%q, want %d", rr.Code, rr.Body.String(), tt.want)
			}
			if tt.want != http.StatusUnauthorized {
				return
			}
			var env struct {
				Error core.Error `json:"error"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if env.Error.Code != "invalid_monitor_token" || env.Error.RequestID == "" {
				t.Fatalf("error = %+v", env.Error)
			}
		})
	}
}
