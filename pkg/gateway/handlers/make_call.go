package handlers

import (
	"log/slog"
	"net/http"
	"strings"
)

type makeCallRequest struct {
	ToNumber string `json:"to_number"`
}

type makeCallResponse struct {
	Success  bool   `json:"success"`
	CallUUID string `json:"call_uuid"`
}

type simpleError struct {
	Error string `json:"error"`
}

// MakeCallHandler places an outbound call.
type MakeCallHandler struct {
	Calls        CallController
	Logger       *slog.Logger
	MaxBodyBytes int64
}

func (h MakeCallHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r, "POST")
		return
	}
	var req makeCallRequest
	if _, err := decodeBody(r, maxBody(h.MaxBodyBytes), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, simpleError{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.ToNumber) == "" {
		writeJSON(w, http.StatusBadRequest, simpleError{Error: "to_number is required"})
		return
	}

	uuid, err := h.Calls.MakeCall(r.Context(), req.ToNumber)
	if err != nil {
		logger(h.Logger).Error("make call failed", "to", req.ToNumber, "error", err)
		writeJSON(w, http.StatusInternalServerError, simpleError{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, makeCallResponse{Success: true, CallUUID: uuid})
}
