package openai

import (
	"net/http"
	"strings"
)

// Option configures the OpenAI provider.
type Option func(*Provider)

// WithBaseURL points the provider at another OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(p *Provider) {
		if url = strings.TrimSpace(url); url != "" {
			p.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model = strings.TrimSpace(model); model != "" {
			p.model = model
		}
	}
}

// WithOrganization bills requests to an OpenAI organization.
func WithOrganization(org string) Option {
	return func(p *Provider) {
		p.organization = strings.TrimSpace(org)
	}
}

// WithMaxTokens caps the reply length. Zero leaves it to the API default.
func WithMaxTokens(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(p *Provider) {
		p.temperature = &t
	}
}
