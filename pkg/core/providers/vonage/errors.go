package vonage

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Error is a problem-details response from the Voice API.
type Error struct {
	StatusCode int    `json:"-"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Detail     string `json:"detail"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Title
	if e.Detail != "" {
		if msg != "" {
			msg += ": "
		}
		msg += e.Detail
	}
	return fmt.Sprintf("vonage: %d %s", e.StatusCode, msg)
}

func parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	out := &Error{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(body, out); err != nil || (out.Title == "" && out.Detail == "") {
		out.Title = strings.TrimSpace(string(body))
		if out.Title == "" {
			out.Title = http.StatusText(resp.StatusCode)
		}
	}
	return out
}
