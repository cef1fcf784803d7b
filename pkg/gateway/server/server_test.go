package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/vai-companion/pkg/core/conversation"
	"github.com/vango-go/vai-companion/pkg/core/providers/vonage"
	"github.com/vango-go/vai-companion/pkg/core/types"
	"github.com/vango-go/vai-companion/pkg/gateway/calls"
	"github.com/vango-go/vai-companion/pkg/gateway/config"
	"github.com/vango-go/vai-companion/pkg/gateway/monitor"
)

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(_ context.Context, r io.Reader, _ string) (string, error) {
	_, _ = io.ReadAll(r)
	return "سلام", nil
}

type stubReplier struct{}

func (stubReplier) Generate(context.Context, []types.Message, string, string) (string, error) {
	return "سلام، چطور می‌توانم کمک کنم؟", nil
}

type stubCallControl struct{}

func (stubCallControl) CreateCall(context.Context, string, string, vonage.NCCO) (string, error) {
	return "out-1", nil
}

func (stubCallControl) DownloadRecording(_ context.Context, _ string, dir string) (string, error) {
	f, err := os.CreateTemp(dir, "recording_*.mp3")
	if err != nil {
		return "", err
	}
	_, _ = f.WriteString("ID3")
	return f.Name(), f.Close()
}

func testConfig() config.Config {
	return config.Config{
		OpenAIAPIKey:        "sk-test",
		ChatProvider:        config.ProviderOpenAI,
		ChatModel:           "gpt-4",
		STTProvider:         config.ProviderOpenAI,
		TTSProvider:         config.ProviderOpenAI,
		BaseURL:             "https://phone.example.com",
		Port:                5000,
		MaxBodyBytes:        1 << 20,
		ReadHeaderTimeout:   time.Second,
		ReadTimeout:         time.Second,
		ShutdownGracePeriod: time.Second,
	}
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *conversation.Store, string) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	store := conversation.NewStore()
	archiveDir := t.TempDir()
	hub := monitor.NewHub(logger)
	ctrl, err := calls.New(calls.Config{
		Store:        store,
		Transcriber:  stubTranscriber{},
		Replier:      stubReplier{},
		CallControl:  stubCallControl{},
		Archive:      conversation.NewCallArchive(archiveDir),
		BaseURL:      cfg.BaseURL,
		RecordingDir: t.TempDir(),
		Monitor:      hub,
		Logger:       logger,
	})
	if err != nil {
		t.Fatalf("calls.New() error = %v", err)
	}
	return New(cfg, Deps{Calls: ctrl, Sessions: store, Monitor: hub}, logger), store, archiveDir
}

func TestServer_UnknownRoute_ReturnsJSON404(t *testing.T) {
	s, _, _ := newTestServer(t, testConfig())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/does-not-exist", nil)
	s.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"type":"not_found_error"`) {
		t.Fatalf("unexpected body: %q", rr.Body.String())
	}
}

func TestServer_CallFlow(t *testing.T) {
	s, store, archiveDir := newTestServer(t, testConfig())
	h := s.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/webhooks/answer?uuid=c1&from=15551234567", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("answer status=%d body=%q", rr.Code, rr.Body.String())
	}
	var ncco []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &ncco); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(ncco) != 2 || ncco[0]["action"] != "talk" || ncco[1]["action"] != "record" {
		t.Fatalf("answer ncco = %v", ncco)
	}
	urls, _ := ncco[1]["eventUrl"].([]any)
	if len(urls) != 1 || !strings.HasSuffix(urls[0].(string), "/webhooks/recording") {
		t.Fatalf("record eventUrl = %v", ncco[1]["eventUrl"])
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/recording",
		strings.NewReader(`{"uuid":"c1","recording_url":"https://api.nexmo.com/v1/files/r1"}`)))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "چطور می‌توانم کمک کنم") {
		t.Fatalf("recording status=%d body=%q", rr.Code, rr.Body.String())
	}
	history := store.GetOrCreate("c1")
	if len(history) != 2 || history[0].Content != "سلام" || history[1].Role != types.RoleAssistant {
		t.Fatalf("history = %+v", history)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/event", strings.NewReader(`{"uuid":"c1","status":"completed"}`)))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("event status=%d body=%q", rr.Code, rr.Body.String())
	}
	if store.Len() != 0 {
		t.Fatalf("store still has %d calls", store.Len())
	}
	files, _ := filepath.Glob(filepath.Join(archiveDir, "call_conversation_c1_*.json"))
	if len(files) != 1 {
		t.Fatalf("archive files = %v", files)
	}
}

func TestServer_SignedWebhooks(t *testing.T) {
	cfg := testConfig()
	cfg.VonageSignatureSecret = "shh"
	s, _, _ := newTestServer(t, cfg)

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/event", strings.NewReader(`{"uuid":"c1","status":"ringing"}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned webhook status=%d", rr.Code)
	}

	// Non-webhook routes are not signed.
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthz status=%d", rr.Code)
	}
}

func TestServer_MonitorRequiresToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		dial  string
		want  int
	}{
		{"unmounted without token", "", "/ws/monitor", http.StatusNotFound},
		{"anonymous", "feed-secret", "/ws/monitor", http.StatusUnauthorized},
		{"wrong token", "feed-secret", "/ws/monitor?token=guess", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.MonitorToken = tt.token
			s, _, _ := newTestServer(t, cfg)
			srv := httptest.NewServer(s.Handler())
			defer srv.Close()

			conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+tt.dial, nil)
			if err == nil {
				conn.Close()
				t.Fatal("Dial() succeeded without a valid token")
			}
			if resp == nil || resp.StatusCode != tt.want {
				t.Fatalf("Dial() resp = %v, want status %d", resp, tt.want)
			}
		})
	}
}

func TestServer_MonitorUpgradesThroughMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.MonitorToken = "feed-secret"
	s, _, _ := newTestServer(t, cfg)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	header := http.Header{"Authorization": {"Bearer feed-secret"}}
	conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/monitor", header)
	if err != nil {
		t.Fatalf("Dial() error = %v (resp %v)", err, resp)
	}
	defer conn.Close()

	// Give the hub a moment to register, then trigger an event.
	time.Sleep(50 * time.Millisecond)
	r, err := http.Get(srv.URL + "/webhooks/answer?uuid=c7&from=1555")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	_ = r.Body.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev monitor.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if ev.Type != monitor.EventCallStarted || ev.CallUUID != "c7" {
		t.Fatalf("event = %+v", ev)
	}
}
