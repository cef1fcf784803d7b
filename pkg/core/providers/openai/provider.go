// Package openai implements the OpenAI Chat Completions API as a reply backend.
package openai

import (
	"context"
	"net/http"
	"strings"

	"github.com/vango-go/vai-companion/pkg/core/types"
)

const (
	// DefaultBaseURL is the default OpenAI API endpoint.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel matches the model the companion was tuned against.
	DefaultModel = "gpt-4"
)

// Provider implements the OpenAI Chat Completions API.
type Provider struct {
	apiKey       string
	baseURL      string
	organization string
	httpClient   *http.Client

	model       string
	maxTokens   int
	temperature *float64
}

// New creates a new OpenAI provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{},
		model:      DefaultModel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "openai"
}

// Model returns the chat model requests are sent to.
func (p *Provider) Model() string {
	return p.model
}

// Complete sends messages as one non-streaming chat completion and returns
// the assistant text of the first choice.
func (p *Provider) Complete(ctx context.Context, messages []types.Message) (string, error) {
	respBody, err := p.post(ctx, p.buildRequest(messages))
	if err != nil {
		return "", err
	}
	return p.parseResponse(respBody)
}
