package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vango-go/vai-companion/pkg/core/types"
)

func TestComplete_SendsConversationAndReturnsText(t *testing.T) {
	var gotAuth string
	var gotPath string
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"chatcmpl_1","model":"gpt-4","choices":[{"index":0,"message":{"role":"assistant","content":"سلام!"},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	p := New("test-key", WithBaseURL(server.URL), WithHTTPClient(server.Client()), WithMaxTokens(150))
	got, err := p.Complete(t.Context(), []types.Message{
		types.System("persona"),
		types.User("سلام"),
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "سلام!" {
		t.Fatalf("Complete() = %q, want سلام!", got)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.Model != DefaultModel || gotBody.MaxTokens != 150 {
		t.Fatalf("request = %+v", gotBody)
	}
	if len(gotBody.Messages) != 2 || gotBody.Messages[0].Role != "system" || gotBody.Messages[1].Content != "سلام" {
		t.Fatalf("messages = %+v", gotBody.Messages)
	}
}

func TestComplete_BaseURLAndOrganization(t *testing.T) {
	var gotPath, gotAuth, gotOrg string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotOrg = r.Header.Get("OpenAI-Organization")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	}))
	defer server.Close()

	p := New("k",
		WithBaseURL(server.URL+"/v1/"),
		WithOrganization("org-1"),
		WithModel("gpt-4o-mini"),
	)
	if p.Model() != "gpt-4o-mini" {
		t.Fatalf("Model() = %q", p.Model())
	}
	if _, err := p.Complete(t.Context(), []types.Message{types.User("hi")}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if gotPath != "/v1/chat/completions" || gotAuth != "Bearer k" || gotOrg != "org-1" {
		t.Fatalf("path=%q auth=%q org=%q", gotPath, gotAuth, gotOrg)
	}
}

func TestComplete_MissingKeyFailsWithoutRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	_, err := New("  ", WithBaseURL(server.URL)).Complete(t.Context(), []types.Message{types.User("hi")})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Type != "authentication_error" {
		t.Fatalf("error = %v, want authentication_error", err)
	}
	if called {
		t.Fatalf("request sent without an API key")
	}
}

func TestComplete_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","param":null,"code":"invalid_api_key"}}`)
	}))
	defer server.Close()

	p := New("bad", WithBaseURL(server.URL))
	_, err := p.Complete(t.Context(), []types.Message{types.User("hi")})
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T %v, want *Error", err, err)
	}
	if apiErr.StatusCode != 401 || apiErr.Code != "invalid_api_key" || apiErr.Type != "invalid_request_error" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer server.Close()

	p := New("k", WithBaseURL(server.URL))
	if _, err := p.Complete(t.Context(), []types.Message{types.User("hi")}); err == nil {
		t.Fatalf("Complete() error = nil, want error")
	}
}

func TestParseErrorBody(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantMsg  string
		wantCode string
	}{
		{"structured", 429, `{"error":{"message":"slow down","type":"rate_limit","code":"rate_limit_exceeded"}}`, "slow down", "rate_limit_exceeded"},
		{"numeric code", 500, `{"error":{"message":"boom","type":"server_error","code":500}}`, "boom", "500"},
		{"plain text", 502, "bad gateway", "bad gateway", ""},
		{"empty body", 503, "", "Service Unavailable", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseErrorBody(tt.status, []byte(tt.body))
			if got.Message != tt.wantMsg || got.Code != tt.wantCode || got.StatusCode != tt.status {
				t.Fatalf("ParseErrorBody() = %+v", got)
			}
		})
	}
}
