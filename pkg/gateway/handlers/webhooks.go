package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/providers/vonage"
	"github.com/vango-go/vai-companion/pkg/gateway/lifecycle"
	"github.com/vango-go/vai-companion/pkg/gateway/mw"
)

// CallController drives the phone conversation for each webhook.
type CallController interface {
	Answer(ctx context.Context, ev vonage.AnswerEvent) vonage.NCCO
	Recording(ctx context.Context, ev vonage.RecordingEvent) vonage.NCCO
	Input(ctx context.Context, ev vonage.InputEvent) vonage.NCCO
	Event(ctx context.Context, ev vonage.StatusEvent) (string, error)
	FallbackNCCO() vonage.NCCO
	MakeCall(ctx context.Context, to string) (string, error)
}

func writeNCCO(w http.ResponseWriter, ncco vonage.NCCO) {
	writeJSON(w, http.StatusOK, ncco)
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

func maxBody(n int64) int64 {
	if n <= 0 {
		return defaultMaxBodyBytes
	}
	return n
}

// AnswerHandler serves the answer webhook. Vonage sends the call as query
// parameters on GET and as JSON on POST.
type AnswerHandler struct {
	Calls        CallController
	Logger       *slog.Logger
	MaxBodyBytes int64
}

func (h AnswerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "GET, POST")
		return
	}
	var ev vonage.AnswerEvent
	found := false
	if r.Method == http.MethodPost {
		var err error
		found, err = decodeBody(r, maxBody(h.MaxBodyBytes), &ev)
		if err != nil {
			logger(h.Logger).Warn("answer webhook: bad body", "error", err)
		}
	}
	if !found {
		q := r.URL.Query()
		ev = vonage.AnswerEvent{
			UUID:             q.Get("uuid"),
			ConversationUUID: q.Get("conversation_uuid"),
			From:             q.Get("from"),
			To:               q.Get("to"),
		}
	}
	if ev.CallID() == "" {
		reqID, _ := mw.RequestIDFrom(r.Context())
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestErrorWithParam("uuid is required", "uuid"), http.StatusBadRequest)
		return
	}
	writeNCCO(w, h.Calls.Answer(r.Context(), ev))
}

// RecordingHandler serves the record action's eventUrl. It always answers
// with a script so the call continues.
type RecordingHandler struct {
	Calls        CallController
	Lifecycle    *lifecycle.Lifecycle
	Logger       *slog.Logger
	MaxBodyBytes int64
}

func (h RecordingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "POST")
		return
	}
	var ev vonage.RecordingEvent
	if _, err := decodeBody(r, maxBody(h.MaxBodyBytes), &ev); err != nil {
		logger(h.Logger).Warn("recording webhook: bad body", "error", err)
		ev = vonage.RecordingEvent{}
	}
	done := h.Lifecycle.StartTurn()
	defer done()
	writeNCCO(w, h.Calls.Recording(r.Context(), ev))
}

// InputHandler serves the input action's eventUrl used by outbound calls.
type InputHandler struct {
	Calls        CallController
	Logger       *slog.Logger
	MaxBodyBytes int64
}

func (h InputHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "POST")
		return
	}
	var ev vonage.InputEvent
	if _, err := decodeBody(r, maxBody(h.MaxBodyBytes), &ev); err != nil {
		logger(h.Logger).Warn("input webhook: bad body", "error", err)
	}
	writeNCCO(w, h.Calls.Input(r.Context(), ev))
}

// EventHandler serves call status updates.
type EventHandler struct {
	Calls        CallController
	Logger       *slog.Logger
	MaxBodyBytes int64
}

func (h EventHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "POST")
		return
	}
	var ev vonage.StatusEvent
	if _, err := decodeBody(r, maxBody(h.MaxBodyBytes), &ev); err != nil {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("invalid event body: "+err.Error()), http.StatusBadRequest)
		return
	}
	if _, err := h.Calls.Event(r.Context(), ev); err != nil {
		coreErr, status := coreErrorFrom(err, reqID)
		writeCoreErrorJSON(w, reqID, coreErr, status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FallbackHandler answers when Vonage could not reach another webhook.
type FallbackHandler struct {
	Calls  CallController
	Logger *slog.Logger
}

func (h FallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "GET, POST")
		return
	}
	logger(h.Logger).Warn("fallback webhook invoked", "query", r.URL.RawQuery)
	writeNCCO(w, h.Calls.FallbackNCCO())
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request, allow string) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	w.Header().Set("Allow", allow)
	writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("method not allowed"), http.StatusMethodNotAllowed)
}
