package handlers

import (
	"html/template"
	"net/http"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/gateway/mw"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Phone Companion</title></head>
<body>
<h1>Phone Companion</h1>
<p>Status: running. Active calls: {{.ActiveCalls}}.</p>
<h2>Webhooks</h2>
<ul>
<li>Answer URL: <code>{{.BaseURL}}/webhooks/answer</code></li>
<li>Event URL: <code>{{.BaseURL}}/webhooks/event</code></li>
<li>Fallback URL: <code>{{.BaseURL}}/webhooks/fallback</code></li>
</ul>
{{if .OutboundEnabled}}<p>Outbound calls: <code>POST {{.BaseURL}}/make-call</code> with <code>{"to_number": "..."}</code>.</p>
{{else}}<p>Outbound calls are disabled until a Vonage application id and private key are configured.</p>
{{end}}{{if .MonitorEnabled}}<p>Operator feed: <code>{{.BaseURL}}/ws/monitor</code> (bearer or <code>?token=</code> MONITOR_TOKEN).</p>
{{end}}</body>
</html>
`))

// IndexHandler renders a status page with the webhook URLs to configure.
type IndexHandler struct {
	BaseURL         string
	OutboundEnabled bool
	MonitorEnabled  bool
	Sessions        Sessions
}

func (h IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		reqID, _ := mw.RequestIDFrom(r.Context())
		writeCoreErrorJSON(w, reqID, core.NewNotFoundError("no route for "+r.URL.Path), http.StatusNotFound)
		return
	}
	active := 0
	if h.Sessions != nil {
		active = h.Sessions.Len()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = indexTemplate.Execute(w, struct {
		BaseURL         string
		OutboundEnabled bool
		MonitorEnabled  bool
		ActiveCalls     int
	}{h.BaseURL, h.OutboundEnabled, h.MonitorEnabled, active})
}
