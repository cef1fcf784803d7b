package mw

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/providers/vonage"
)

// VonageSignature rejects webhook requests whose signed bearer token does not
// verify against secret. An empty secret disables the check. The body is read
// up to maxBody bytes and replaced so handlers can decode it again.
func VonageSignature(secret string, maxBody int64, logger *slog.Logger, next http.Handler) http.Handler {
	if secret == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, _ := RequestIDFrom(r.Context())

		var body []byte
		if r.Body != nil {
			var err error
			body, err = io.ReadAll(io.LimitReader(r.Body, maxBody+1))
			_ = r.Body.Close()
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, &core.Error{Type: core.ErrInvalidRequest, Message: "failed to read request body", RequestID: reqID})
				return
			}
			if int64(len(body)) > maxBody {
				writeJSONError(w, http.StatusRequestEntityTooLarge, &core.Error{Type: core.ErrInvalidRequest, Message: "request body too large", RequestID: reqID})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		if err := vonage.VerifySignature(r.Header.Get("Authorization"), secret, body); err != nil {
			if logger != nil {
				logger.Warn("webhook signature rejected", "request_id", reqID, "path", r.URL.Path, "error", err)
			}
			writeJSONError(w, http.StatusUnauthorized, &core.Error{
				Type:      core.ErrInvalidRequest,
				Message:   "invalid webhook signature",
				Param:     "Authorization",
				Code:      "invalid_signature",
				RequestID: reqID,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
