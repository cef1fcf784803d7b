package apierror

import (
	"context"
	"errors"
	"net/http"

	"github.com/vango-go/vai-companion/pkg/core"
	"github.com/vango-go/vai-companion/pkg/core/providers/gemini"
	"github.com/vango-go/vai-companion/pkg/core/providers/openai"
	"github.com/vango-go/vai-companion/pkg/core/providers/vonage"
)

type Envelope struct {
	Error *core.Error `json:"error"`
}

func FromError(err error, requestID string) (*core.Error, int) {
	if err == nil {
		return nil, http.StatusOK
	}

	// Context timeouts/cancellation.
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request timeout",
			RequestID: requestID,
		}, http.StatusGatewayTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &core.Error{
			Type:      core.ErrAPI,
			Message:   "request cancelled",
			Code:      "cancelled",
			RequestID: requestID,
		}, http.StatusRequestTimeout
	}

	// Already canonical.
	var coreErr *core.Error
	if errors.As(err, &coreErr) && coreErr != nil {
		out := *coreErr
		out.RequestID = requestID
		return &out, statusFromType(coreErr.Type)
	}

	// Bare vendor errors that escaped a wrapping constructor.
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) && openaiErr != nil {
		return &core.Error{
			Type:      core.ErrGeneration,
			Message:   openaiErr.Message,
			Code:      openaiErr.Code,
			Param:     openaiErr.Param,
			Provider:  "openai",
			RequestID: requestID,
		}, http.StatusBadGateway
	}

	var geminiErr *gemini.Error
	if errors.As(err, &geminiErr) && geminiErr != nil {
		return &core.Error{
			Type:      core.ErrGeneration,
			Message:   geminiErr.Message,
			Code:      geminiErr.Code,
			Provider:  "gemini",
			RequestID: requestID,
		}, http.StatusBadGateway
	}

	var vonageErr *vonage.Error
	if errors.As(err, &vonageErr) && vonageErr != nil {
		return &core.Error{
			Type:      core.ErrCallControl,
			Message:   vonageErr.Error(),
			Code:      vonageErr.Type,
			Provider:  "vonage",
			RequestID: requestID,
		}, http.StatusBadGateway
	}

	// Unknown errors: treat as internal API error (do not leak details by default).
	return &core.Error{
		Type:      core.ErrAPI,
		Message:   "internal error",
		RequestID: requestID,
	}, http.StatusInternalServerError
}

func statusFromType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrTranscription, core.ErrGeneration, core.ErrSynthesis, core.ErrCallControl:
		return http.StatusBadGateway
	case core.ErrConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
