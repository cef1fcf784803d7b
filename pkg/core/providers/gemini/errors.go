package gemini

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// ErrorType categorizes errors.
type ErrorType string

const (
	ErrInvalidRequest ErrorType = "invalid_request_error"
	ErrAuthentication ErrorType = "authentication_error"
	ErrPermission     ErrorType = "permission_error"
	ErrNotFound       ErrorType = "not_found_error"
	ErrRateLimit      ErrorType = "rate_limit_error"
	ErrAPI            ErrorType = "api_error"
	ErrOverloaded     ErrorType = "overloaded_error"
)

// Error represents an API error from Gemini.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`

	cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gemini: %s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("gemini: %s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// convertError maps genai API errors onto Error. Transport errors and
// context cancellation pass through wrapped so errors.Is still works.
func convertError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) || apiErrPtr == nil {
			return fmt.Errorf("gemini: %w", err)
		}
		apiErr = *apiErrPtr
	}
	return &Error{
		Type:    errorTypeFromStatus(apiErr.Code),
		Message: apiErr.Message,
		Code:    apiErr.Status,
		cause:   err,
	}
}

func errorTypeFromStatus(status int) ErrorType {
	switch status {
	case http.StatusBadRequest:
		return ErrInvalidRequest
	case http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusForbidden:
		return ErrPermission
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimit
	case http.StatusServiceUnavailable:
		return ErrOverloaded
	default:
		return ErrAPI
	}
}
