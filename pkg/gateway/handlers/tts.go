package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/voice/tts"
	"github.com/vango-go/vai-companion/pkg/gateway/mw"
)

// Synthesizer renders text to audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (*tts.Synthesis, error)
}

type ttsRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

// TTSHandler returns synthesized speech for ad-hoc text.
type TTSHandler struct {
	Synth        Synthesizer
	Logger       *slog.Logger
	MaxBodyBytes int64
}

func (h TTSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "POST")
		return
	}
	if h.Synth == nil {
		writeCoreErrorJSON(w, reqID, core.NewConfigurationError("speech synthesis is not configured"), http.StatusServiceUnavailable)
		return
	}
	var req ttsRequest
	if _, err := decodeBody(r, maxBody(h.MaxBodyBytes), &req); err != nil {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestError("invalid request body"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeCoreErrorJSON(w, reqID, core.NewInvalidRequestErrorWithParam("text is required", "text"), http.StatusBadRequest)
		return
	}

	syn, err := h.Synth.Synthesize(r.Context(), req.Text, req.Voice)
	if err != nil {
		logger(h.Logger).Error("synthesis failed", "request_id", reqID, "error", err)
		coreErr, status := coreErrorFrom(err, reqID)
		writeCoreErrorJSON(w, reqID, coreErr, status)
		return
	}
	w.Header().Set("Content-Type", syn.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(syn.Audio)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(syn.Audio)
}
