package core

import (
	"errors"
	"fmt"
)

// Error is the canonical error shape shared by the companion packages and the
// phone gateway's JSON endpoints.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Param     string    `json:"param,omitempty"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`

	// Provider is the vendor that produced the failure, when known.
	Provider string `json:"provider,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, msg, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrConfiguration  ErrorType = "configuration_error"
	ErrTranscription  ErrorType = "transcription_error"
	ErrGeneration     ErrorType = "generation_error"
	ErrSynthesis      ErrorType = "synthesis_error"
	ErrCallControl    ErrorType = "call_control_error"
	ErrPersistence    ErrorType = "persistence_error"
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrAPI            ErrorType = "api_error"
)

func newError(t ErrorType, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Type: t, Message: message, cause: cause}
}

// NewConfigurationError reports a missing or invalid setting. These are fatal at startup.
func NewConfigurationError(message string) *Error {
	return newError(ErrConfiguration, message, nil)
}

// NewTranscriptionError wraps a speech-to-text failure.
func NewTranscriptionError(provider string, cause error) *Error {
	e := newError(ErrTranscription, "", cause)
	e.Provider = provider
	return e
}

// NewGenerationError wraps a chat completion failure.
func NewGenerationError(provider string, cause error) *Error {
	e := newError(ErrGeneration, "", cause)
	e.Provider = provider
	return e
}

// NewSynthesisError wraps a text-to-speech failure.
func NewSynthesisError(provider string, cause error) *Error {
	e := newError(ErrSynthesis, "", cause)
	e.Provider = provider
	return e
}

// NewCallControlError wraps a rejection from the call-control service.
func NewCallControlError(cause error) *Error {
	e := newError(ErrCallControl, "", cause)
	e.Provider = "vonage"
	return e
}

// NewPersistenceError wraps a filesystem failure while saving or loading a conversation.
func NewPersistenceError(cause error) *Error {
	return newError(ErrPersistence, "", cause)
}

// NewInvalidRequestError creates an invalid request error.
func NewInvalidRequestError(message string) *Error {
	return newError(ErrInvalidRequest, message, nil)
}

// NewInvalidRequestErrorWithParam creates an invalid request error with a parameter.
func NewInvalidRequestErrorWithParam(message, param string) *Error {
	e := newError(ErrInvalidRequest, message, nil)
	e.Param = param
	return e
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *Error {
	return newError(ErrNotFound, message, nil)
}

// NewAPIError creates a generic internal error.
func NewAPIError(message string) *Error {
	return newError(ErrAPI, message, nil)
}

// IsType reports whether err is a *Error of type t anywhere in its chain.
func IsType(err error, t ErrorType) bool {
	var coreErr *Error
	if errors.As(err, &coreErr) && coreErr != nil {
		return coreErr.Type == t
	}
	return false
}
