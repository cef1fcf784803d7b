package mw

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vango-go/vai-companion/pkg/core"
)

type plainWriter struct {
	header http.Header
	status int
}

func (w *plainWriter) Header() http.Header {
	if w.header == nil {
		w.header = make(http.Header)
	}
	return w.header
}

func (w *plainWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
}

func (w *plainWriter) Write(p []byte) (int, error) {
	w.WriteHeader(http.StatusOK)
	return len(p), nil
}

type flushingWriter struct {
	plainWriter
	flushed bool
}

func (w *flushingWriter) Flush() { w.flushed = true }

type hijackingWriter struct {
	plainWriter
	hijacked bool
}

func (w *hijackingWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.hijacked = true
	return nil, nil, nil
}

type fullWriter struct {
	plainWriter
	flushed, hijacked bool
}

func (w *fullWriter) Flush() { w.flushed = true }

func (w *fullWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.hijacked = true
	return nil, nil, nil
}

func TestAccessLog_KeepsOptionalWriterInterfaces(t *testing.T) {
	tests := []struct {
		name                  string
		w                     http.ResponseWriter
		wantFlush, wantHijack bool
	}{
		{name: "plain", w: &plainWriter{}},
		{name: "flusher", w: &flushingWriter{}, wantFlush: true},
		{name: "hijacker", w: &hijackingWriter{}, wantHijack: true},
		{name: "both", w: &fullWriter{}, wantFlush: true, wantHijack: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AccessLog(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				f, isFlusher := w.(http.Flusher)
				hj, isHijacker := w.(http.Hijacker)
				if isFlusher != tt.wantFlush || isHijacker != tt.wantHijack {
					t.Fatalf("flusher=%v hijacker=%v, want %v/%v", isFlusher, isHijacker, tt.wantFlush, tt.wantHijack)
				}
				if isFlusher {
					f.Flush()
				}
				if isHijacker {
					if _, _, err := hj.Hijack(); err != nil {
						t.Fatalf("Hijack: %v", err)
					}
				}
			}))
			h.ServeHTTP(tt.w, httptest.NewRequest(http.MethodGet, "/ws/monitor", nil))

			switch w := tt.w.(type) {
			case *flushingWriter:
				if !w.flushed {
					t.Fatalf("flush not delegated")
				}
			case *hijackingWriter:
				if !w.hijacked {
					t.Fatalf("hijack not delegated")
				}
			case *fullWriter:
				if !w.flushed || !w.hijacked {
					t.Fatalf("flushed=%v hijacked=%v, want both", w.flushed, w.hijacked)
				}
			}
		})
	}
}

func logRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected a log line")
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("unmarshal log: %v", err)
	}
	return rec
}

func TestAccessLog_Status(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    int
	}{
		{"explicit", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }, http.StatusNoContent},
		{"implicit write", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("[]")) }, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := AccessLog(slog.New(slog.NewJSONHandler(&buf, nil)), tt.handler)
			h.ServeHTTP(&plainWriter{}, httptest.NewRequest(http.MethodPost, "/webhooks/event", nil))

			rec := logRecord(t, &buf)
			if got, _ := rec["status"].(float64); int(got) != tt.want {
				t.Fatalf("logged status=%v, want %d", rec["status"], tt.want)
			}
		})
	}
}

func TestAccessLog_LogsRequestIDAndCall(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID(AccessLog(slog.New(slog.NewJSONHandler(&buf, nil)), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/webhooks/answer?uuid=c1&from=100", nil)
	req.Header.Set("X-Request-ID", "req_fixed")
	h.ServeHTTP(httptest.NewRecorder(), req)

	rec := logRecord(t, &buf)
	if rec["request_id"] != "req_fixed" || rec["path"] != "/webhooks/answer" || rec["method"] != "GET" || rec["call_uuid"] != "c1" {
		t.Fatalf("log record = %v", rec)
	}
}

func TestAccessLog_ProbesLogAtDebug(t *testing.T) {
	var buf bytes.Buffer
	h := AccessLog(slog.New(slog.NewJSONHandler(&buf, nil)), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if buf.Len() != 0 {
		t.Fatalf("health probe logged at info: %s", buf.String())
	}
}

func TestRecover_PanicInWebhookReturnsAPIError(t *testing.T) {
	var logs bytes.Buffer
	h := RequestID(Recover(slog.New(slog.NewJSONHandler(&logs, nil)), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/webhooks/recording", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
	var env struct {
		Error core.Error `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Error.Type != core.ErrAPI || env.Error.RequestID == "" {
		t.Fatalf("error = %+v", env.Error)
	}
	if env.Error.RequestID != rr.Header().Get("X-Request-ID") {
		t.Fatalf("request_id=%q header=%q", env.Error.RequestID, rr.Header().Get("X-Request-ID"))
	}
	if !strings.Contains(logs.String(), "boom") {
		t.Fatalf("panic not logged: %s", logs.String())
	}
}
