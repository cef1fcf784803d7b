package handlers

import (
	"net/http"

	"github.com/vango-go/vai-companion/pkg/gateway/config"
	"github.com/vango-go/vai-companion/pkg/gateway/lifecycle"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// Sessions reports how many calls are in progress.
type Sessions interface {
	Len() int
}

type ReadyHandler struct {
	Config    config.Config
	Lifecycle *lifecycle.Lifecycle
	Sessions  Sessions
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK             bool     `json:"ok"`
		Draining       bool     `json:"draining"`
		CallControl    bool     `json:"call_control"`
		SignedWebhooks bool     `json:"signed_webhooks"`
		ActiveCalls    int      `json:"active_calls"`
		TurnsInFlight  int64    `json:"turns_in_flight"`
		Issues         []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)
	draining := h.Lifecycle.IsDraining()
	if draining {
		issues = append(issues, "server is draining")
	}
	if err := h.Config.Validate(); err != nil {
		issues = append(issues, err.Error())
	}
	if h.Config.OutboundNumberMissing() {
		issues = append(issues, "call control configured without VONAGE_PHONE_NUMBER")
	}

	active := 0
	if h.Sessions != nil {
		active = h.Sessions.Len()
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if draining {
		status = http.StatusServiceUnavailable
	} else if !ok {
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, readyResp{
		OK:             ok,
		Draining:       draining,
		CallControl:    h.Config.CallControlConfigured(),
		SignedWebhooks: h.Config.VonageSignatureSecret != "",
		ActiveCalls:    active,
		TurnsInFlight:  h.Lifecycle.InFlight(),
		Issues:         issues,
	})
}
