package openai

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error is an error response returned by the OpenAI API.
type Error struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	Code       string `json:"code,omitempty"`
	Param      string `json:"param,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("openai: %d %s: %s (code: %s)", e.StatusCode, e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("openai: %d %s: %s", e.StatusCode, e.Type, e.Message)
}

type openaiErrorEnvelope struct {
	Error struct {
		Type    string          `json:"type"`
		Message string          `json:"message"`
		Code    json.RawMessage `json:"code"`
		Param   *string         `json:"param"`
	} `json:"error"`
}

// parseError converts a non-2xx OpenAI response into *Error. It is shared by
// chat, transcription and speech callers.
func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return ParseErrorBody(resp.StatusCode, body)
}

// ParseErrorBody builds an *Error from a status code and response body.
func ParseErrorBody(status int, body []byte) *Error {
	out := &Error{StatusCode: status, Type: "api_error"}

	var env openaiErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Message == "" {
		out.Message = strings.TrimSpace(string(body))
		if out.Message == "" {
			out.Message = http.StatusText(status)
		}
		return out
	}

	if env.Error.Type != "" {
		out.Type = env.Error.Type
	}
	out.Message = env.Error.Message
	if env.Error.Param != nil {
		out.Param = *env.Error.Param
	}
	// code is a string in most responses and occasionally a number or null.
	var code string
	if err := json.Unmarshal(env.Error.Code, &code); err == nil {
		out.Code = code
	} else if len(env.Error.Code) > 0 && string(env.Error.Code) != "null" {
		out.Code = string(env.Error.Code)
	}
	return out
}
